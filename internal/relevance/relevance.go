// Package relevance tags labels that carry the agricultural use section or a
// restricted-entry interval, reading the text source each document's final
// determination selected.
package relevance

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"labelocr/internal/cache"
	"labelocr/internal/logger"
	"labelocr/internal/manifest"
	"labelocr/pkg/models"
)

// Tag is the relevance of one label.
type Tag string

const (
	TagBoth Tag = "both"
	TagAg   Tag = "ag"
	TagREI  Tag = "rei"
	TagNone Tag = "none"
)

const (
	agriculturalUse = "agriculturaluserequirements"
	restrictedEntry = "restrictedentryinterval"
)

// Classify tags text by the two agricultural phrases. Whitespace and hyphens
// are ignored, so line breaks and "Restricted-Entry" spellings still match.
func Classify(text string) Tag {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToLower(r)
	}, text)

	ag := strings.Contains(compact, agriculturalUse)
	rei := strings.Contains(compact, restrictedEntry)
	switch {
	case ag && rei:
		return TagBoth
	case ag:
		return TagAg
	case rei:
		return TagREI
	}
	return TagNone
}

// Outcome says why a row was or was not tagged.
type Outcome string

const (
	OutcomeTagged               Outcome = "tagged"
	OutcomeNoFilename           Outcome = "skipped_no_filename"
	OutcomeManualReview         Outcome = "skipped_manual_review"
	OutcomeAuthType             Outcome = "skipped_auth_type"
	OutcomeUnknownDetermination Outcome = "skipped_unknown_determination"
	OutcomeMissingText          Outcome = "missing_text"
)

// Report counts the tags and skip reasons of a run.
type Report struct {
	Tags     map[Tag]int
	Outcomes map[Outcome]int
}

// Tagger reads artifacts from the raw and OCR stores.
type Tagger struct {
	raw      *cache.Store
	ocr      *cache.Store
	authType string
	log      zerolog.Logger
}

// NewTagger creates a tagger. A non-empty authType restricts tagging to rows
// with that Auth Type (case-insensitive); other rows are left untouched.
func NewTagger(raw, ocr *cache.Store, authType string) *Tagger {
	return &Tagger{
		raw:      raw,
		ocr:      ocr,
		authType: strings.TrimSpace(authType),
		log:      logger.WithComponent("relevance"),
	}
}

// TagRow tags a single row and writes the result to the relevance column.
func (t *Tagger) TagRow(table *manifest.Table, row int) (Outcome, Tag, error) {
	filename := table.Get(row, manifest.ColFilename)
	if filename == "" || strings.EqualFold(filename, "nan") {
		return OutcomeNoFilename, "", nil
	}
	if t.authType != "" && !strings.EqualFold(table.Get(row, manifest.ColAuthType), t.authType) {
		return OutcomeAuthType, "", nil
	}

	var store *cache.Store
	switch table.Determination(row) {
	case models.DeterminationManualReview:
		return OutcomeManualReview, "", nil
	case models.DeterminationOCR:
		store = t.ocr
	case models.DeterminationOriginal, "":
		store = t.raw
	default:
		return OutcomeUnknownDetermination, "", nil
	}

	text, err := store.ReadBody(filename)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return OutcomeMissingText, "", nil
		}
		return "", "", fmt.Errorf("failed to read text of %s: %w", filename, err)
	}

	tag := Classify(text)
	table.Set(row, manifest.ColRelevance, string(tag))
	return OutcomeTagged, tag, nil
}

// Run tags every row of table. Read failures are logged and counted as
// missing text.
func (t *Tagger) Run(table *manifest.Table) Report {
	report := Report{Tags: make(map[Tag]int), Outcomes: make(map[Outcome]int)}
	table.EnsureColumns(manifest.ColRelevance)

	for row := 0; row < table.Len(); row++ {
		outcome, tag, err := t.TagRow(table, row)
		if err != nil {
			t.log.Warn().Err(err).Int("row", row).Msg("Text unreadable")
			outcome = OutcomeMissingText
		}
		report.Outcomes[outcome]++
		if outcome == OutcomeTagged {
			report.Tags[tag]++
		}
		t.log.Debug().
			Int("row", row).
			Str("file", table.Get(row, manifest.ColFilename)).
			Str("outcome", string(outcome)).
			Str("tag", string(tag)).
			Msg("Row checked")
	}
	return report
}
