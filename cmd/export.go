package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"labelocr/internal/logger"
	"labelocr/internal/manifest"
	"labelocr/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Publish the output manifest to a Google Sheet",
	Long: `Write the output manifest to a worksheet of a Google Sheet. The worksheet
is created if needed and its contents are replaced, so exporting the same
manifest twice leaves the sheet unchanged.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL (or pass --sheet)`,
	Example: `  # Publish current_products_ocr.csv to the OCR_Results worksheet
  labelocr export

  # Publish another manifest to a named worksheet
  labelocr export --manifest products_ag.csv --worksheet Agriculture`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("manifest", "", "Manifest CSV to publish (default: OUTPUT_MANIFEST_PATH)")
	exportCmd.Flags().String("sheet", "", "Google Sheets URL (default: GOOGLE_SHEET_URL)")
	exportCmd.Flags().String("worksheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	exportCmd.Flags().Int("timeout", 120, "Timeout in seconds")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	manifestPath, _ := cmd.Flags().GetString("manifest")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if manifestPath == "" {
		manifestPath = appConfig.OutputManifestPath
	}
	if sheetURL == "" {
		sheetURL = appConfig.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = appConfig.GoogleSheetWorksheet
	}
	if sheetURL == "" {
		return fmt.Errorf("no Google Sheet configured: set GOOGLE_SHEET_URL or pass --sheet")
	}

	table, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	sheetsService, err := sheets.NewSheetsService(ctx, sheetURL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Google Sheets service")
		return fmt.Errorf("failed to create Google Sheets service: %w", err)
	}

	if err := sheetsService.WriteTable(ctx, worksheet, table.Header(), table.Rows()); err != nil {
		log.Error().Err(err).Msg("Failed to write to Google Sheet")
		return fmt.Errorf("failed to write to Google Sheet: %w", err)
	}

	fmt.Printf("Sheet: %s\n", worksheet)
	fmt.Printf("Rows written: %d\n", table.Len())
	fmt.Printf("URL: %s\n", sheetURL)
	return nil
}
