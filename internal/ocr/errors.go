package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrImageTooLarge is returned when a rendered page would exceed the pixel
	// guard or the renderer ran out of memory. The raster service answers it by
	// retrying at the fallback scale.
	ErrImageTooLarge = errors.New("rendered page image exceeds size limit")

	// ErrRenderFailed is returned when the page could not be rasterized for a
	// reason other than its size.
	ErrRenderFailed = errors.New("page rendering failed")

	// ErrOCRFailed is returned when the recognition engine fails on an image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when an engine is selected without the
	// settings it needs.
	ErrInvalidConfiguration = errors.New("invalid OCR engine configuration")

	// ErrUnknownEngine is returned for an OCR_ENGINE value with no implementation.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrEngineNotAvailable is returned when the engine binary is not installed.
	ErrEngineNotAvailable = errors.New("OCR engine not available")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "RenderPage", "Recognize").
	Op string

	// Page is the 1-based page number, zero when not page specific.
	Page int

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	prefix := "ocr: " + e.Op
	if e.Page > 0 {
		prefix = fmt.Sprintf("%s page %d", prefix, e.Page)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s failed: %s: %v", prefix, e.Details, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", prefix, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, page int, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return &OCRError{Op: op, Page: page, Err: err, Details: details}
}
