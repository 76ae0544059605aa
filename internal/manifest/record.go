package manifest

import (
	"strconv"

	"labelocr/pkg/models"
)

// FirstPassColumns are the columns written by the extract stage.
var FirstPassColumns = []string{
	ColPageLengths, ColTextLength, ColAllPagesText,
	ColPreProduct, ColPreRegistration, ColPreBoilerplate,
	ColExtractError,
}

// OCRColumns are the columns written by the OCR stage.
var OCRColumns = []string{
	ColRequirement, ColReason, ColOCRPages,
	ColPostLengths, ColPostProduct, ColPostRegistration, ColPostBoilerplate,
	ColVerdict, ColFinal, ColOCRError,
}

// RecordFirstPass writes the extraction results of a row.
func (t *Table) RecordFirstPass(row int, a models.Assessment) {
	t.Set(row, ColPageLengths, models.FormatInts(a.PageLengths))
	t.Set(row, ColTextLength, strconv.Itoa(a.TextLength))
	t.Set(row, ColAllPagesText, strconv.FormatBool(a.EveryPageHasText()))
	t.setSignals(row, &a.PreOCR, ColPreProduct, ColPreRegistration, ColPreBoilerplate)
}

// RecordOCR writes the OCR stage results of a row. Pre-OCR signals are
// written as well when the manifest did not carry them.
func (t *Table) RecordOCR(row int, a models.Assessment) {
	if t.Get(row, ColPreProduct) == "" {
		t.setSignals(row, &a.PreOCR, ColPreProduct, ColPreRegistration, ColPreBoilerplate)
	}
	if t.Get(row, ColPageLengths) == "" && a.PageLengths != nil {
		t.Set(row, ColPageLengths, models.FormatInts(a.PageLengths))
	}

	t.Set(row, ColRequirement, string(a.Requirement))
	t.Set(row, ColReason, a.Reason)
	t.Set(row, ColOCRPages, formatOptional(a.OCRPages))
	t.Set(row, ColPostLengths, formatOptional(a.OCRPageLengths))
	t.setSignals(row, a.PostOCR, ColPostProduct, ColPostRegistration, ColPostBoilerplate)
	t.Set(row, ColVerdict, string(a.Verdict))
	t.Set(row, ColFinal, string(a.Final))
}

// RecordError writes the failure text of a stage, or clears it.
func (t *Table) RecordError(row int, errorCol string, err error) {
	if err == nil {
		t.Set(row, errorCol, "")
		return
	}
	t.Set(row, errorCol, err.Error())
}

func (t *Table) setSignals(row int, q *models.QualitySignals, product, registration, boilerplate string) {
	if q == nil {
		t.Set(row, product, "")
		t.Set(row, registration, "")
		t.Set(row, boilerplate, "")
		return
	}
	t.Set(row, product, strconv.FormatBool(q.ProductName))
	t.Set(row, registration, strconv.FormatBool(q.RegistrationNumber))
	t.Set(row, boilerplate, strconv.FormatBool(q.Boilerplate))
}

func formatOptional(xs []int) string {
	if len(xs) == 0 {
		return ""
	}
	return models.FormatInts(xs)
}
