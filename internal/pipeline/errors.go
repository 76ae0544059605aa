package pipeline

import (
	"context"
	"errors"
	"fmt"

	"labelocr/internal/cache"
	"labelocr/internal/extract"
	"labelocr/internal/manifest"
)

var (
	// ErrNoFilename is returned for manifest rows without a PDF filename.
	ErrNoFilename = errors.New("row has no PDF filename")

	// ErrMissingPDF is returned when the PDF named by a row is not on disk.
	ErrMissingPDF = errors.New("PDF not found")

	// ErrTaskPanic marks a task that panicked and was recovered.
	ErrTaskPanic = errors.New("task panicked")
)

// ErrorKind classifies why a document failed.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindInput      ErrorKind = "input"
	KindMissingPDF ErrorKind = "missing_pdf"
	KindExtraction ErrorKind = "extraction"
	KindArtifact   ErrorKind = "artifact"
	KindCanceled   ErrorKind = "canceled"
	KindPanic      ErrorKind = "panic"
	KindInternal   ErrorKind = "internal"
)

// StageError wraps a failure with the stage operation and its kind.
type StageError struct {
	// Op is the stage operation that failed (e.g., "ExtractPages").
	Op string

	// Kind classifies the failure for reporting.
	Kind ErrorKind

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s failed (%s): %s: %v", e.Op, e.Kind, e.Details, e.Err)
	}
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *StageError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapStageError wraps an error as a StageError if it isn't already one.
func WrapStageError(op string, kind ErrorKind, err error, details string) error {
	if err == nil {
		return nil
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return err
	}
	return &StageError{Op: op, Kind: kind, Err: err, Details: details}
}

// KindOf returns the kind recorded on err, inferring one for plain errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	switch {
	case errors.Is(err, ErrNoFilename), errors.Is(err, manifest.ErrInvalidRow):
		return KindInput
	case errors.Is(err, ErrMissingPDF):
		return KindMissingPDF
	case errors.Is(err, extract.ErrOpenPDF):
		return KindExtraction
	case errors.Is(err, cache.ErrArtifactExists):
		return KindArtifact
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrTaskPanic):
		return KindPanic
	}
	return KindInternal
}

// statusFor maps a task failure to the status recorded in the manifest.
func statusFor(err error) Status {
	switch {
	case errors.Is(err, ErrNoFilename):
		return StatusSkippedNoFilename
	case errors.Is(err, ErrMissingPDF):
		return StatusMissingPDF
	default:
		return StatusError
	}
}

// degrade is the single place a stage failure becomes a task result.
func degrade(r Result, err error) Result {
	r.Status = statusFor(err)
	r.Err = err
	r.Kind = KindOf(err)
	r.Assessment = nil
	return r
}

// InputFailure is the result of a manifest row that could not be turned into
// a document.
func InputFailure(index int, filename string, err error) Result {
	return degrade(Result{Index: index, Filename: filename}, WrapStageError("ReadRow", KindInput, err, ""))
}
