// Package ocr rasterizes label pages and recognizes their text.
//
// Pages are rendered with Poppler's pdftoppm at a high magnification first,
// because small print on pesticide labels is only legible to the recognizer
// when scaled up. Dense pages can produce images large enough to trip the
// pixel guard; those are retried once at a lower magnification, and if that
// fails as well the page keeps its embedded text. OCR never fails a document.
//
// Recognition engines:
//   - tesseract: local Tesseract, via gosseract when built with -tags ocr,
//     otherwise via the tesseract command line binary
//   - vision: Google Cloud Vision document text detection
//   - documentai: Google Document AI OCR processor
//
// Cloud engines read credentials from GOOGLE_APPLICATION_CREDENTIALS (path)
// or GOOGLE_CREDENTIALS (inline JSON).
package ocr

import (
	"context"
	"time"
)

const (
	// DefaultPrimaryScale renders at 8x the 72 dpi PDF user space (576 dpi).
	DefaultPrimaryScale = 8.0

	// DefaultFallbackScale renders at 3x (216 dpi).
	DefaultFallbackScale = 3.0

	// DefaultMaxImagePixels is the decompression-bomb ceiling used as the pixel
	// guard for rendered pages.
	DefaultMaxImagePixels int64 = 178956970

	// MaxCloudImageBytes is the largest page image sent to the Vision and
	// Document AI engines in one synchronous request (20MB).
	MaxCloudImageBytes = 20 * 1024 * 1024
)

// Recognizer turns a page image into text.
type Recognizer interface {
	// Name identifies the engine in logs.
	Name() string

	// Recognize returns the text found in a PNG encoded image.
	Recognize(ctx context.Context, image []byte) (string, error)

	// Close releases engine resources.
	Close() error
}

// Renderer rasterizes a single PDF page to PNG.
type Renderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int, scale float64) ([]byte, error)
}

// PageHandle identifies one page to recognize.
type PageHandle struct {
	// Path is the source PDF.
	Path string

	// Number is the 1-based page number.
	Number int

	// Width and Height are the page size in points. Zero when unknown; the
	// pixel guard then relies on the rendered image alone.
	Width  float64
	Height float64

	// Original is the embedded text, used when OCR cannot produce anything.
	Original string
}

// PageResult is the outcome of recognizing one page.
type PageResult struct {
	Page   int
	Text   string
	Length int

	// Scale is the magnification that produced Text, zero on fallback.
	Scale float64

	// FellBack is set when Text is the embedded text because OCR failed.
	FellBack bool

	// Err is the last OCR failure when FellBack is set.
	Err error

	Duration time.Duration
}
