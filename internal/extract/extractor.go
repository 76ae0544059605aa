// Package extract reads the embedded text layer of label PDFs page by page
// and provides the page-marker format shared by every text artifact.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"labelocr/internal/logger"
)

// ErrOpenPDF is returned when a document cannot be opened at all. Individual
// unreadable pages do not produce an error.
var ErrOpenPDF = errors.New("cannot open PDF")

// PageExtractor returns the embedded text of each page, in page order.
type PageExtractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]string, error)
}

// PDFExtractor implements PageExtractor on top of the PDF text layer.
type PDFExtractor struct {
	log zerolog.Logger
}

// NewPDFExtractor creates a text layer extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{log: logger.WithComponent("extract")}
}

// ExtractPages returns one string per page. A page whose content cannot be
// decoded yields an empty string rather than failing the document.
func (e *PDFExtractor) ExtractPages(ctx context.Context, pdfPath string) (pages []string, err error) {
	f, r, err := openPDF(pdfPath)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, fmt.Errorf("%w %s: %v", ErrOpenPDF, pdfPath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			e.log.Warn().Err(closeErr).Str("file", pdfPath).Msg("Failed to close PDF file")
		}
	}()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, pageErr := e.pageText(r, i)
		if pageErr != nil {
			e.log.Warn().
				Err(pageErr).
				Str("file", pdfPath).
				Int("page", i).
				Msg("Page text unreadable, recording as empty")
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// pageText isolates the parser: malformed content streams can panic deep in
// the reader, and that must cost only the page.
func (e *PDFExtractor) pageText(r *pdf.Reader, number int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: parser panic: %v", number, rec)
		}
	}()

	page := r.Page(number)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("parser panic: %v", rec)
		}
	}()
	return pdf.Open(path)
}
