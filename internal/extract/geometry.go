package extract

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageSize is a page's media box in PDF points (1/72 inch).
type PageSize struct {
	Width  float64
	Height float64
}

// Geometry reports page count and page sizes without decoding content.
type Geometry interface {
	PageCount(pdfPath string) (int, error)
	PageSizes(pdfPath string) ([]PageSize, error)
}

// PDFCPUGeometry implements Geometry with pdfcpu.
type PDFCPUGeometry struct{}

// PageCount returns the number of pages in the document.
func (PDFCPUGeometry) PageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("page count %s: %w", pdfPath, err)
	}
	return n, nil
}

// PageSizes returns the size of each page in page order.
func (PDFCPUGeometry) PageSizes(pdfPath string) ([]PageSize, error) {
	dims, err := api.PageDimsFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("page dimensions %s: %w", pdfPath, err)
	}
	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}
