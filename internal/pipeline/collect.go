package pipeline

import (
	"github.com/rs/zerolog"

	"labelocr/internal/logger"
	"labelocr/internal/manifest"
)

// Collector applies task results to the output manifest and checkpoints it
// after every result. It runs on the orchestrator's collecting goroutine
// only, so it is the single writer of the table.
type Collector struct {
	table   *manifest.Table
	path    string
	apply   func(*manifest.Table, Result)
	summary *Summary
	log     zerolog.Logger
}

// NewOCRCollector collects OCR stage results into table, checkpointing to
// path when it is not empty.
func NewOCRCollector(table *manifest.Table, path string) *Collector {
	table.EnsureColumns(manifest.OCRColumns...)
	return newCollector(table, path, applyOCR)
}

// NewFirstPassCollector collects extraction results into table.
func NewFirstPassCollector(table *manifest.Table, path string) *Collector {
	table.EnsureColumns(manifest.FirstPassColumns...)
	return newCollector(table, path, applyFirstPass)
}

func newCollector(table *manifest.Table, path string, apply func(*manifest.Table, Result)) *Collector {
	return &Collector{
		table:   table,
		path:    path,
		apply:   apply,
		summary: NewSummary(),
		log:     logger.WithComponent("collector"),
	}
}

// Collect records one result. A failed checkpoint is logged; the final
// Flush reports write errors to the caller.
func (c *Collector) Collect(r Result) {
	c.apply(c.table, r)
	c.summary.Add(r)

	if r.Err != nil {
		ev := c.log.Warn()
		if r.Kind == KindPanic {
			ev = c.log.Error().Str("trace", r.Trace)
		}
		ev.Err(r.Err).
			Int("index", r.Index).
			Str("file", r.Filename).
			Str("status", string(r.Status)).
			Str("kind", string(r.Kind)).
			Msg("Document failed")
	}

	if c.path == "" {
		return
	}
	if err := c.table.WriteFile(c.path); err != nil {
		c.log.Error().Err(err).Str("path", c.path).Msg("Checkpoint failed")
	}
}

// Flush writes the table once more after the batch.
func (c *Collector) Flush() error {
	if c.path == "" {
		return nil
	}
	return c.table.WriteFile(c.path)
}

// Summary returns the aggregated results.
func (c *Collector) Summary() *Summary {
	return c.summary
}

// Table returns the output manifest.
func (c *Collector) Table() *manifest.Table {
	return c.table
}

func applyOCR(t *manifest.Table, r Result) {
	if r.Assessment != nil {
		t.RecordOCR(r.Index, *r.Assessment)
	}
	t.RecordError(r.Index, manifest.ColOCRError, r.Err)
}

func applyFirstPass(t *manifest.Table, r Result) {
	if r.Assessment != nil {
		t.RecordFirstPass(r.Index, *r.Assessment)
	}
	t.RecordError(r.Index, manifest.ColExtractError, r.Err)
}
