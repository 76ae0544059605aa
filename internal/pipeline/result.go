// Package pipeline runs the per-document stages over a manifest: first pass
// extraction and the OCR decision engine, fanned out over a bounded worker
// pool with per-task failure isolation.
package pipeline

import (
	"context"
	"time"

	"labelocr/pkg/models"
)

// Status is the outcome of one task as recorded in the manifest.
type Status string

const (
	StatusSkippedNoFilename Status = "skipped_no_filename"
	StatusMissingPDF        Status = "missing_pdf"
	StatusCached            Status = "cached"
	StatusExtracted         Status = "extracted"
	StatusNoOCRNeeded       Status = "no_ocr_needed"
	StatusPageSpecific      Status = "completed_page_specific"
	StatusFullOCR           Status = "completed_full_ocr"
	StatusError             Status = "error"
)

// Result is what a task reports back to the orchestrator.
type Result struct {
	Index    int
	Filename string
	Status   Status

	// Assessment is nil unless the document was processed or restored.
	Assessment *models.Assessment

	Err   error
	Kind  ErrorKind
	Trace string

	Duration time.Duration
}

// Failed reports whether the task ended in an error status.
func (r Result) Failed() bool {
	return r.Status == StatusError || r.Status == StatusMissingPDF
}

// Task processes one document. Implementations report failures in the
// Result instead of returning them.
type Task func(ctx context.Context, doc models.Document) Result

// Mirror copies written artifacts to remote storage. Existing remote copies
// are kept unless overwrite is set.
type Mirror interface {
	Upload(ctx context.Context, overwrite bool, paths ...string) error
}
