package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"labelocr/internal/manifest"
	"labelocr/internal/ocr"
	"labelocr/internal/pipeline"
	"labelocr/internal/storage"
	"labelocr/pkg/models"
)

// createSignalContext cancels the returned context on SIGINT or SIGTERM.
// Tasks already running finish their current page; nothing new is scheduled.
func createSignalContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, stopping after running documents")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// documentsOf turns manifest rows into documents. Rows that cannot be parsed
// come back as failed results so they still show up in the output manifest.
func documentsOf(table *manifest.Table) ([]models.Document, []pipeline.Result) {
	var (
		docs     []models.Document
		failures []pipeline.Result
	)
	for row := 0; row < table.Len(); row++ {
		doc, err := table.Document(row)
		if err != nil {
			failures = append(failures, pipeline.InputFailure(row, table.Get(row, manifest.ColFilename), err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failures
}

// createMirror returns the GCS mirror when GCS_OUTPUT_BUCKET is set, and a
// nil mirror otherwise.
func createMirror(ctx context.Context, log zerolog.Logger) (pipeline.Mirror, func(), error) {
	if appConfig.GCSOutputBucket == "" {
		return nil, func() {}, nil
	}

	opts, err := ocr.CredentialOptions()
	if err != nil {
		return nil, nil, err
	}
	m, err := storage.NewMirror(ctx, appConfig.GCSOutputBucket, appConfig.GCSOutputFolder, opts...)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("bucket", appConfig.GCSOutputBucket).
		Str("folder", appConfig.GCSOutputFolder).
		Msg("Mirroring artifacts to Cloud Storage")

	return m, func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close storage client")
		}
	}, nil
}

// withProgress prints one line per finished document before handing the
// result to collect.
func withProgress(total int, collect func(pipeline.Result)) func(pipeline.Result) {
	done := 0
	return func(r pipeline.Result) {
		done++
		collect(r)

		name := r.Filename
		if name == "" {
			name = fmt.Sprintf("row %d", r.Index)
		}
		fmt.Printf("[%d/%d] %s %s - %s", done, total, getStatusEmoji(r), name, r.Status)
		switch {
		case r.Err != nil:
			fmt.Printf(" (%s)", r.Err.Error())
		case r.Assessment != nil && r.Assessment.Final != "":
			fmt.Printf(" (%s)", r.Assessment.Final)
		}
		fmt.Println()
	}
}

func getStatusEmoji(r pipeline.Result) string {
	switch {
	case r.Status == pipeline.StatusSkippedNoFilename:
		return "⏭️"
	case r.Failed():
		return "❌"
	case r.Assessment != nil && r.Assessment.Final == models.DeterminationManualReview:
		return "⚠️"
	default:
		return "✅"
	}
}

// runBatch feeds docs through task with the configured worker count. Input
// failures are collected first.
func runBatch(ctx context.Context, workers int, docs []models.Document, failures []pipeline.Result, task pipeline.Task, collector *pipeline.Collector) error {
	collect := withProgress(len(docs)+len(failures), collector.Collect)
	for _, f := range failures {
		collect(f)
	}

	orchestrator := pipeline.NewOrchestrator(workers)
	fmt.Printf("Processing %d documents with %d parallel workers...\n\n", len(docs), orchestrator.Workers())

	runErr := orchestrator.Run(ctx, docs, task, collect)
	if err := collector.Flush(); err != nil {
		return fmt.Errorf("failed to write output manifest: %w", err)
	}
	fmt.Println()
	collector.Summary().Print(os.Stdout)
	return runErr
}
