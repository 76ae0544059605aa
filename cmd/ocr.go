package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"labelocr/internal/cache"
	"labelocr/internal/extract"
	"labelocr/internal/logger"
	"labelocr/internal/manifest"
	"labelocr/internal/ocr"
	"labelocr/internal/pipeline"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "OCR labels whose text layer is unreliable and record the final determination",
	Long: `Classify every document in the manifest and OCR the ones that need it.

A document needs OCR when any page has fewer than MIN_PAGE_CHARS characters
(only those pages are OCRed), when its text mentions neither the product name
nor the registration number, or when a primary label lacks the "keep out of
reach of children" phrase (the whole document is OCRed).

Pages are rendered with pdftoppm at OCR_PRIMARY_SCALE, retried once at
OCR_FALLBACK_SCALE when the image is too large, and keep their embedded text
when OCR fails. The result is written to <stem>_OCR.txt in OCR_TEXT_DIR and
the output manifest gains OCR_needed, runOCR_reason, OCR_pages,
Post_OCR_char_per_page, OCR_text_contains_*, OCR_v_Original and
final_determination. The output manifest is checkpointed after every document.

Documents whose _OCR artifact already exists are not processed again unless
--force is given.

Environment variables:
  OCR_ENGINE            tesseract (default), vision or documentai
  TESSERACT_PATH, TESSERACT_LANG, PDFTOPPM_PATH
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS (cloud engines)
  GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION, DOCUMENT_AI_PROCESSOR_ID
  PDF_DIR, OCR_TEXT_DIR, MANIFEST_PATH, OUTPUT_MANIFEST_PATH, OCR_WORKERS`,
	Example: `  # OCR with local Tesseract using the configured manifests
  labelocr ocr

  # Use Google Cloud Vision with four workers
  OCR_ENGINE=vision labelocr ocr --workers 4

  # Reprocess everything, ignoring existing artifacts
  labelocr ocr --force`,
	Args: cobra.NoArgs,
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().String("manifest", "", "Input manifest CSV (default: MANIFEST_PATH)")
	ocrCmd.Flags().String("output", "", "Output manifest CSV (default: OUTPUT_MANIFEST_PATH)")
	ocrCmd.Flags().Int("workers", 0, "Parallel workers, at most 8 (default: OCR_WORKERS)")
	ocrCmd.Flags().Bool("force", false, "Reprocess documents whose _OCR artifact already exists")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	manifestPath, _ := cmd.Flags().GetString("manifest")
	outputPath, _ := cmd.Flags().GetString("output")
	workers, _ := cmd.Flags().GetInt("workers")
	force, _ := cmd.Flags().GetBool("force")

	if manifestPath == "" {
		manifestPath = appConfig.ManifestPath
	}
	if outputPath == "" {
		outputPath = appConfig.OutputManifestPath
	}
	if workers == 0 {
		workers = appConfig.OCRWorkers
	}

	table, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}

	log.Info().
		Str("manifest", manifestPath).
		Str("output", outputPath).
		Str("engine", appConfig.OCREngine).
		Int("rows", table.Len()).
		Bool("force", force).
		Msg("Starting OCR stage")

	ctx, cancel := createSignalContext(log)
	defer cancel()

	recognizer, err := createRecognizer(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := recognizer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close recognizer")
		}
	}()

	mirror, closeMirror, err := createMirror(ctx, log)
	if err != nil {
		return err
	}
	defer closeMirror()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                         LABEL OCR")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Manifest: %s (%d rows)\n", manifestPath, table.Len())
	fmt.Printf("Engine: %s\n", recognizer.Name())
	fmt.Printf("Scales: %.0fx, fallback %.0fx\n", appConfig.OCRPrimaryScale, appConfig.OCRFallbackScale)
	fmt.Printf("Output: %s\n", appConfig.OCRTextDir)
	fmt.Println()

	raster := ocr.NewRasterService(
		ocr.NewPopplerRenderer(appConfig.PdftoppmPath),
		recognizer,
		ocr.RasterConfig{
			PrimaryScale:   appConfig.OCRPrimaryScale,
			FallbackScale:  appConfig.OCRFallbackScale,
			MaxImagePixels: appConfig.OCRMaxImagePixels,
		},
	)

	engine := pipeline.NewEngine(pipeline.EngineDeps{
		Extractor: extract.NewPDFExtractor(),
		Geometry:  extract.PDFCPUGeometry{},
		Pages:     raster,
		Store:     cache.NewStore(appConfig.OCRTextDir, cache.StageOCR),
		Mirror:    mirror,
	}, pipeline.Options{
		PDFDir:           appConfig.PDFDir,
		PrimaryLabelType: appConfig.PrimaryLabelAuthType,
		MinPageChars:     appConfig.MinPageChars,
		MinOCRGain:       appConfig.OCRMinGain,
		Force:            force,
	})

	docs, failures := documentsOf(table)
	collector := pipeline.NewOCRCollector(table, outputPath)
	if err := runBatch(ctx, workers, docs, failures, engine.Process, collector); err != nil {
		return err
	}

	fmt.Printf("Manifest: %s\n", outputPath)
	if n := len(collector.Summary().ManualReview); n > 0 {
		fmt.Printf("%d documents need manual review; run 'labelocr review' to inspect them.\n", n)
	}
	return nil
}

// createRecognizer builds the configured OCR engine
func createRecognizer(ctx context.Context, log zerolog.Logger) (ocr.Recognizer, error) {
	recognizer, err := ocr.NewRecognizer(ctx, ocr.EngineConfig{
		Engine:        appConfig.OCREngine,
		TesseractPath: appConfig.TesseractPath,
		TesseractLang: appConfig.TesseractLang,
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:   appConfig.GoogleCloudProject,
			Location:    appConfig.GoogleCloudLocation,
			ProcessorID: appConfig.DocumentAIProcessorID,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("engine", appConfig.OCREngine).Msg("Failed to create OCR engine")
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return nil, fmt.Errorf("Google Cloud credentials not usable. Please set one of:\n\n" +
				"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
				"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
				"2. Export GOOGLE_CREDENTIALS with inline JSON\n\n" +
				"3. Use Application Default Credentials:\n" +
				"   gcloud auth application-default login\n\n" +
				"Original error: %w", err)
		}
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}

	log.Debug().Str("engine", recognizer.Name()).Msg("OCR engine created")
	return recognizer, nil
}
