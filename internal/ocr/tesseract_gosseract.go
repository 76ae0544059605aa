//go:build ocr

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract links libtesseract through gosseract. A client is created per
// call because gosseract clients are not safe for concurrent use.
type Tesseract struct {
	lang string
}

// NewTesseract returns a gosseract backed recognizer. The binary argument is
// ignored; it exists for parity with the command line build.
func NewTesseract(binary, lang string) (*Tesseract, error) {
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{lang: lang}, nil
}

// Name identifies the engine in logs.
func (t *Tesseract) Name() string {
	return "tesseract-gosseract"
}

// Recognize runs Tesseract on the PNG image.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.lang); err != nil {
		return "", fmt.Errorf("failed to set OCR language %q: %w", t.lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

// Close is a no-op; clients are released after each call.
func (t *Tesseract) Close() error {
	return nil
}
