// Package classify holds the three decision rules of the OCR pipeline: whether
// a label needs OCR, which text source wins after OCR, and the terminal
// determination for the document.
package classify

import (
	"fmt"
	"strconv"
	"strings"

	"labelocr/pkg/models"
)

const (
	// MinPageChars is the minimum embedded character count for a page to be
	// trusted without OCR.
	MinPageChars = 300

	// MinOCRGain is how many characters OCR must add on a single page before
	// the OCR text is preferred.
	MinOCRGain = 100
)

// NeedInput carries what the need classifier looks at.
type NeedInput struct {
	PageLengths  []int
	Signals      models.QualitySignals
	PrimaryLabel bool

	// MinPageChars overrides the package default when positive.
	MinPageChars int
}

// Classification is the OCR requirement of a document with a readable reason.
type Classification struct {
	Requirement models.OCRRequirement
	Reason      string

	// Pages lists the 1-based pages to OCR for a page_specific requirement.
	Pages []int
}

// ClassifyNeed applies the OCR need policy. Rules are checked in order and the
// first match wins: short pages, then attribution, then the boilerplate
// phrase on primary labels.
func ClassifyNeed(in NeedInput) Classification {
	threshold := in.MinPageChars
	if threshold <= 0 {
		threshold = MinPageChars
	}

	var short []int
	for i, n := range in.PageLengths {
		if n < threshold {
			short = append(short, i+1)
		}
	}
	if len(short) > 0 {
		return Classification{
			Requirement: models.RequirementPageSpecific,
			Reason: fmt.Sprintf("%d of %d pages have fewer than %d characters (pages: %s)",
				len(short), len(in.PageLengths), threshold, joinInts(short)),
			Pages: short,
		}
	}

	if !in.Signals.Attributed() {
		return Classification{
			Requirement: models.RequirementFullDocument,
			Reason:      "text contains neither the product name nor the registration number",
		}
	}

	if in.PrimaryLabel && !in.Signals.Boilerplate {
		return Classification{
			Requirement: models.RequirementFullDocument,
			Reason:      "primary label text is missing the mandatory boilerplate phrase",
		}
	}

	return Classification{Requirement: models.RequirementNone}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
