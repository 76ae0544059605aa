package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"labelocr/internal/cache"
	"labelocr/internal/extract"
	"labelocr/internal/logger"
	"labelocr/internal/manifest"
	"labelocr/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Record the embedded text layer of every label PDF in the manifest",
	Long: `Extract the embedded text of each PDF listed in the manifest, page by page.

For every row the command writes a raw text artifact (<stem>.txt in
RAW_TEXT_DIR, pages wrapped in ***PAGE n START/END*** markers, plus a JSON
sidecar) and records in the manifest:
  each_page_len                  characters per page
  txt_file_len                   total characters
  all_pages_have_text            whether every page has text
  text_contains_product_name     product keyword from the file name found
  text_contains_epa_no           registration number prefix found
  text_contains_children         "keep out of reach of children" found

Documents whose artifact already exists are not extracted again unless
--force is given.

Environment variables:
  PDF_DIR, RAW_TEXT_DIR, MANIFEST_PATH, OCR_WORKERS, GCS_OUTPUT_BUCKET`,
	Example: `  # Extract every label listed in current_products.csv
  labelocr extract

  # Write the enriched manifest elsewhere and redo existing artifacts
  labelocr extract --manifest products.csv --output products_txt.csv --force`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("manifest", "", "Input manifest CSV (default: MANIFEST_PATH)")
	extractCmd.Flags().String("output", "", "Output manifest CSV (default: the input manifest)")
	extractCmd.Flags().Int("workers", 0, "Parallel workers, at most 8 (default: OCR_WORKERS)")
	extractCmd.Flags().Bool("force", false, "Re-extract documents whose artifact already exists")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	manifestPath, _ := cmd.Flags().GetString("manifest")
	outputPath, _ := cmd.Flags().GetString("output")
	workers, _ := cmd.Flags().GetInt("workers")
	force, _ := cmd.Flags().GetBool("force")

	if manifestPath == "" {
		manifestPath = appConfig.ManifestPath
	}
	if outputPath == "" {
		outputPath = manifestPath
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
		Int("rows", table.Len()).
		Bool("force", force).
		Msg("Starting text layer extraction")

	ctx, cancel := createSignalContext(log)
	defer cancel()

	mirror, closeMirror, err := createMirror(ctx, log)
	if err != nil {
		return err
	}
	defer closeMirror()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                         TEXT LAYER EXTRACTION")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Manifest: %s (%d rows)\n", manifestPath, table.Len())
	fmt.Printf("PDFs: %s\n", appConfig.PDFDir)
	fmt.Printf("Text: %s\n", appConfig.RawTextDir)
	fmt.Println()

	firstPass := pipeline.NewFirstPass(
		extract.NewPDFExtractor(),
		nil,
		cache.NewStore(appConfig.RawTextDir, cache.StageExtract),
		mirror,
		pipeline.Options{PDFDir: appConfig.PDFDir, Force: force},
	)

	docs, failures := documentsOf(table)
	collector := pipeline.NewFirstPassCollector(table, outputPath)
	if err := runBatch(ctx, workers, docs, failures, firstPass.Process, collector); err != nil {
		return err
	}

	fmt.Printf("Manifest: %s\n", outputPath)
	return nil
}
