package ocr

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// pointsPerInch is the PDF user space resolution at scale 1.
const pointsPerInch = 72.0

// PopplerRenderer rasterizes pages with the pdftoppm binary.
type PopplerRenderer struct {
	// Binary is the pdftoppm executable, "pdftoppm" when empty.
	Binary string
}

// NewPopplerRenderer creates a renderer for the given pdftoppm binary.
func NewPopplerRenderer(binary string) *PopplerRenderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &PopplerRenderer{Binary: binary}
}

// RenderPage renders one page at scale times 72 dpi and returns the PNG bytes.
func (r *PopplerRenderer) RenderPage(ctx context.Context, pdfPath string, page int, scale float64) ([]byte, error) {
	const op = "RenderPage"

	dir, err := os.MkdirTemp("", "labelocr-render-*")
	if err != nil {
		return nil, WrapOCRError(op, page, err, "failed to create render directory")
	}
	defer os.RemoveAll(dir)

	root := filepath.Join(dir, "page")
	dpi := strconv.Itoa(int(math.Round(scale * pointsPerInch)))
	pageArg := strconv.Itoa(page)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary,
		"-png", "-r", dpi,
		"-f", pageArg, "-l", pageArg,
		"-singlefile",
		pdfPath, root)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, WrapOCRError(op, page, ctx.Err(), "render canceled")
		}
		msg := strings.TrimSpace(stderr.String())
		if isOutOfMemory(err, msg) {
			return nil, WrapOCRError(op, page, ErrImageTooLarge, fmt.Sprintf("pdftoppm at %s dpi: %s", dpi, msg))
		}
		return nil, WrapOCRError(op, page, ErrRenderFailed, fmt.Sprintf("pdftoppm at %s dpi: %v: %s", dpi, err, msg))
	}

	data, err := os.ReadFile(root + ".png")
	if err != nil {
		return nil, WrapOCRError(op, page, ErrRenderFailed, fmt.Sprintf("no image produced: %v", err))
	}
	return data, nil
}

// isOutOfMemory recognizes renderer failures caused by the image size: an
// allocation error reported by poppler, or the process being killed.
func isOutOfMemory(err error, stderr string) bool {
	lower := strings.ToLower(stderr)
	if strings.Contains(lower, "out of memory") || strings.Contains(lower, "bad_alloc") ||
		strings.Contains(lower, "too large") {
		return true
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ProcessState != nil && strings.Contains(exitErr.ProcessState.String(), "killed")
	}
	return false
}
