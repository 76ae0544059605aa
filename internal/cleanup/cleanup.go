// Package cleanup removes the files of documents that ended in Manual_Review,
// so a rerun of the pipeline does not pick them up again.
package cleanup

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"labelocr/internal/cache"
	"labelocr/internal/logger"
	"labelocr/internal/manifest"
	"labelocr/pkg/models"
)

// Outcome of one deletion.
type Outcome string

const (
	Deleted  Outcome = "deleted"
	NotFound Outcome = "not_found"
	Failed   Outcome = "failed"
)

// Target is one file that belongs to a document.
type Target struct {
	Kind string
	Path string
}

// Deletion reports what happened to one target.
type Deletion struct {
	Filename string
	Target
	Outcome Outcome
	Err     error
}

// Cleaner resolves and deletes the files of a document.
type Cleaner struct {
	pdfDir string
	raw    *cache.Store
	ocr    *cache.Store
	log    zerolog.Logger
}

// NewCleaner creates a cleaner for the given PDF directory and artifact
// stores.
func NewCleaner(pdfDir string, raw, ocr *cache.Store) *Cleaner {
	return &Cleaner{
		pdfDir: pdfDir,
		raw:    raw,
		ocr:    ocr,
		log:    logger.WithComponent("cleanup"),
	}
}

// ManualReview returns the PDF filenames of every Manual_Review row, in
// manifest order.
func ManualReview(table *manifest.Table) []string {
	var names []string
	for row := 0; row < table.Len(); row++ {
		if table.Determination(row) != models.DeterminationManualReview {
			continue
		}
		name := table.Get(row, manifest.ColFilename)
		if name == "" || strings.EqualFold(name, "nan") {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Targets lists the files of a document: the PDF, the raw text artifact and
// its sidecar, and the OCR artifact and its sidecar.
func (c *Cleaner) Targets(pdfFilename string) []Target {
	raw := c.raw.ArtifactFor(pdfFilename)
	ocr := c.ocr.ArtifactFor(pdfFilename)
	return []Target{
		{Kind: "PDF", Path: filepath.Join(c.pdfDir, pdfFilename)},
		{Kind: "Raw TXT", Path: raw.TextPath},
		{Kind: "Raw sidecar", Path: raw.SidecarPath},
		{Kind: "OCR TXT", Path: ocr.TextPath},
		{Kind: "OCR sidecar", Path: ocr.SidecarPath},
	}
}

// Delete removes every target of each document. A failure on one file does
// not stop the others.
func (c *Cleaner) Delete(filenames []string) []Deletion {
	var out []Deletion
	for _, name := range filenames {
		for _, target := range c.Targets(name) {
			d := Deletion{Filename: name, Target: target, Outcome: Deleted}
			if err := os.Remove(target.Path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					d.Outcome = NotFound
				} else {
					d.Outcome = Failed
					d.Err = err
				}
			}

			ev := c.log.Debug()
			if d.Outcome == Failed {
				ev = c.log.Warn().Err(d.Err)
			}
			ev.Str("file", name).
				Str("kind", target.Kind).
				Str("path", target.Path).
				Str("outcome", string(d.Outcome)).
				Msg("Cleanup")

			out = append(out, d)
		}
	}
	return out
}
