package classify

import "labelocr/pkg/models"

// FinalInput is every signal the terminal classifier folds together.
type FinalInput struct {
	Requirement  models.OCRRequirement
	Verdict      models.Verdict
	PreOCR       models.QualitySignals
	PostOCR      models.QualitySignals
	PrimaryLabel bool
}

// Determine returns the terminal label for a document. It is total: any
// combination of inputs, including unknown requirement or verdict values,
// yields exactly one of Original, OCR or Manual_Review.
func Determine(in FinalInput) models.Determination {
	switch in.Requirement {
	case models.RequirementNone:
		return models.DeterminationOriginal

	case models.RequirementPageSpecific:
		switch in.Verdict {
		case models.VerdictOriginal:
			if in.PreOCR.Attributed() {
				return models.DeterminationOriginal
			}
		case models.VerdictOCR:
			if in.PostOCR.Attributed() {
				return models.DeterminationOCR
			}
		}
		return models.DeterminationManualReview

	case models.RequirementFullDocument:
		if !in.PostOCR.Attributed() {
			return models.DeterminationManualReview
		}
		if in.PrimaryLabel && !in.PostOCR.Boilerplate {
			return models.DeterminationManualReview
		}
		return models.DeterminationOCR
	}

	return models.DeterminationManualReview
}
