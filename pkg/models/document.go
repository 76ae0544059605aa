package models

import "strings"

// OCRRequirement is the outcome of deciding whether a label needs OCR.
type OCRRequirement string

const (
	RequirementNone         OCRRequirement = "none"
	RequirementPageSpecific OCRRequirement = "page_specific"
	RequirementFullDocument OCRRequirement = "full_document"
)

// Valid reports whether r is one of the known requirement values.
func (r OCRRequirement) Valid() bool {
	switch r {
	case RequirementNone, RequirementPageSpecific, RequirementFullDocument:
		return true
	}
	return false
}

// NeedsOCR reports whether any page will be rasterized.
func (r OCRRequirement) NeedsOCR() bool {
	return r == RequirementPageSpecific || r == RequirementFullDocument
}

// Verdict names the text source the comparator considers authoritative.
type Verdict string

const (
	VerdictOriginal Verdict = "Original"
	VerdictOCR      Verdict = "OCR"
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	return v == VerdictOriginal || v == VerdictOCR
}

// Determination is the terminal label of a document.
type Determination string

const (
	DeterminationOriginal     Determination = "Original"
	DeterminationOCR          Determination = "OCR"
	DeterminationManualReview Determination = "Manual_Review"
)

// Valid reports whether d is one of the three terminal labels.
func (d Determination) Valid() bool {
	switch d {
	case DeterminationOriginal, DeterminationOCR, DeterminationManualReview:
		return true
	}
	return false
}

// QualitySignals holds the content checks computed against one text blob.
type QualitySignals struct {
	ProductName        bool `json:"product_name"`
	RegistrationNumber bool `json:"registration_number"`
	Boilerplate        bool `json:"boilerplate"`
}

// Attributed reports whether the text can be tied to its document by either
// the product keyword or the registration number.
func (q QualitySignals) Attributed() bool {
	return q.ProductName || q.RegistrationNumber
}

// Document is one label file as delivered by the ingestion manifest.
type Document struct {
	// Index is the row position in the manifest, used to apply results back.
	Index int

	Filename       string
	RegistrationID string
	AuthType       string

	// PageLengths are the original per-page character counts. Nil when the
	// manifest did not carry them.
	PageLengths []int

	// PreOCR holds first-pass quality signals when the manifest carried them.
	PreOCR *QualitySignals
}

// IsPrimaryLabel compares the authorization type against the configured
// primary label type, ignoring case and surrounding space.
func (d Document) IsPrimaryLabel(primaryType string) bool {
	return strings.EqualFold(strings.TrimSpace(d.AuthType), strings.TrimSpace(primaryType))
}

// Page is one 1-based page of a document.
type Page struct {
	Number   int
	Original string
	OCR      string
	HasOCR   bool
}

// Text returns the currently authoritative text of the page.
func (p Page) Text() string {
	if p.HasOCR {
		return p.OCR
	}
	return p.Original
}

// NewPages numbers embedded page texts from 1.
func NewPages(texts []string) []Page {
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = Page{Number: i + 1, Original: t}
	}
	return pages
}

// PageTexts returns the authoritative text of each page in order.
func PageTexts(pages []Page) []string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text()
	}
	return texts
}

// Assessment is everything the engine adds to a document row.
type Assessment struct {
	// First pass.
	PageLengths []int          `json:"page_lengths"`
	TextLength  int            `json:"text_length"`
	PreOCR      QualitySignals `json:"pre_ocr"`

	// OCR stage. Requirement is empty when only the first pass ran.
	Requirement    OCRRequirement  `json:"requirement,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	OCRPages       []int           `json:"ocr_pages,omitempty"`
	PostOCR        *QualitySignals `json:"post_ocr,omitempty"`
	OCRPageLengths []int           `json:"ocr_page_lengths,omitempty"`
	Verdict        Verdict         `json:"verdict,omitempty"`
	Final          Determination   `json:"final,omitempty"`
}

// EveryPageHasText reports whether all pages carry at least one character.
func (a Assessment) EveryPageHasText() bool {
	if len(a.PageLengths) == 0 {
		return false
	}
	for _, n := range a.PageLengths {
		if n <= 0 {
			return false
		}
	}
	return true
}
