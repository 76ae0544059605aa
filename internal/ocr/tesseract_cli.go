//go:build !ocr

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tesseract runs the tesseract command line binary. Build with -tags ocr to
// link libtesseract through gosseract instead.
type Tesseract struct {
	binary string
	lang   string
}

// NewTesseract checks that the binary is installed and returns a recognizer.
func NewTesseract(binary, lang string) (*Tesseract, error) {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, WrapOCRError("NewTesseract", 0, ErrEngineNotAvailable, fmt.Sprintf("%s: %v", binary, err))
	}
	return &Tesseract{binary: binary, lang: lang}, nil
}

// Name identifies the engine in logs.
func (t *Tesseract) Name() string {
	return "tesseract-cli"
}

// Recognize pipes the image through tesseract and returns its stdout.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "-l", t.lang, "--psm", "3")
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Close is a no-op for the command line engine.
func (t *Tesseract) Close() error {
	return nil
}
