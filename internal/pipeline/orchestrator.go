package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"labelocr/internal/logger"
	"labelocr/pkg/models"
)

// MaxWorkers caps the pool regardless of core count; rendered pages at 8x are
// large enough that memory, not CPU, is the limit.
const MaxWorkers = 8

// Orchestrator fans tasks out over a bounded pool. Each task runs in
// isolation: a panic is captured into that task's result. Results are handed
// to a single collector, so the collector needs no locking.
type Orchestrator struct {
	workers int
	log     zerolog.Logger
}

// NewOrchestrator creates a pool of the given size, clamped to [1, MaxWorkers].
func NewOrchestrator(workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &Orchestrator{
		workers: workers,
		log:     logger.WithComponent("orchestrator"),
	}
}

// Workers returns the pool size.
func (o *Orchestrator) Workers() int {
	return o.workers
}

// Run processes docs with task and calls collect once per finished task, in
// completion order, on the calling goroutine. It returns the context error
// when the run was interrupted before every document was scheduled.
func (o *Orchestrator) Run(ctx context.Context, docs []models.Document, task Task, collect func(Result)) error {
	start := time.Now()
	results := make(chan Result, o.workers)

	var g errgroup.Group
	g.SetLimit(o.workers)

	go func() {
		defer close(results)
		for _, doc := range docs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results <- runIsolated(ctx, task, doc)
				return nil
			})
		}
		_ = g.Wait()
	}()

	n := 0
	for r := range results {
		n++
		collect(r)
	}

	o.log.Info().
		Int("documents", len(docs)).
		Int("completed", n).
		Int("workers", o.workers).
		Dur("duration", time.Since(start)).
		Msg("Batch finished")

	if n < len(docs) {
		return fmt.Errorf("batch interrupted after %d of %d documents: %w", n, len(docs), ctx.Err())
	}
	return nil
}

// runIsolated runs one task and converts a panic into an error result.
func runIsolated(ctx context.Context, task Task, doc models.Document) (res Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res = degrade(Result{Index: doc.Index, Filename: doc.Filename}, fmt.Errorf("%w: %v", ErrTaskPanic, rec))
			res.Trace = string(debug.Stack())
			res.Duration = time.Since(start)
		}
	}()

	res = task(ctx, doc)
	res.Index = doc.Index
	if res.Filename == "" {
		res.Filename = doc.Filename
	}
	return res
}
