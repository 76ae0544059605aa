package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"labelocr/internal/config"
	"labelocr/internal/logger"
)

var version = "1.0.0"

// appConfig is loaded once before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "labelocr",
	Short: "Verify and repair the text layer of pesticide label PDFs",
	Long: `labelocr checks whether the embedded text of each label PDF in a manifest
is trustworthy, OCRs the pages or documents that are not, and records a final
determination per document: Original, OCR or Manual_Review.

Typical run:
  labelocr extract     record the embedded text layer and its quality signals
  labelocr ocr         OCR where needed and decide which text source wins
  labelocr review      list and optionally delete Manual_Review documents
  labelocr relevance   tag labels with agricultural use / REI sections
  labelocr export      publish the output manifest to Google Sheets

Configuration is read from the environment and an optional .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("labelocr executed without subcommand")

		_ = cmd.Help()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
