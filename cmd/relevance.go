package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"labelocr/internal/cache"
	"labelocr/internal/logger"
	"labelocr/internal/manifest"
	"labelocr/internal/relevance"
)

var relevanceCmd = &cobra.Command{
	Use:   "relevance",
	Short: "Tag labels that carry agricultural use requirements or an REI",
	Long: `Read the authoritative text of each document and tag it in the
ag_rei_relevance column:
  both   "Agricultural Use Requirements" and "Restricted-Entry Interval"
  ag     only "Agricultural Use Requirements"
  rei    only "Restricted-Entry Interval"
  none   neither

The OCR artifact is read for documents determined OCR, the raw text artifact
otherwise. Manual_Review documents are skipped.`,
	Example: `  # Tag every document of the OCR output manifest
  labelocr relevance

  # Only routine registrations, written to a separate file
  labelocr relevance --auth-type ROUTINE --output products_ag.csv`,
	Args: cobra.NoArgs,
	RunE: runRelevance,
}

func init() {
	rootCmd.AddCommand(relevanceCmd)

	relevanceCmd.Flags().String("manifest", "", "Output manifest of the OCR stage (default: OUTPUT_MANIFEST_PATH)")
	relevanceCmd.Flags().String("output", "", "Where to write the tagged manifest (default: the input manifest)")
	relevanceCmd.Flags().String("auth-type", "", "Only tag rows with this Auth Type")
}

func runRelevance(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("relevance")

	manifestPath, _ := cmd.Flags().GetString("manifest")
	outputPath, _ := cmd.Flags().GetString("output")
	authType, _ := cmd.Flags().GetString("auth-type")

	if manifestPath == "" {
		manifestPath = appConfig.OutputManifestPath
	}
	if outputPath == "" {
		outputPath = manifestPath
	}

	table, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}

	tagger := relevance.NewTagger(
		cache.NewStore(appConfig.RawTextDir, cache.StageExtract),
		cache.NewStore(appConfig.OCRTextDir, cache.StageOCR),
		authType,
	)
	report := tagger.Run(table)

	if err := table.WriteFile(outputPath); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	log.Info().
		Str("manifest", outputPath).
		Int("rows", table.Len()).
		Int("tagged", report.Outcomes[relevance.OutcomeTagged]).
		Msg("Relevance tagging finished")

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RELEVANCE")
	fmt.Println(strings.Repeat("=", 50))
	for _, tag := range []relevance.Tag{relevance.TagBoth, relevance.TagAg, relevance.TagREI, relevance.TagNone} {
		fmt.Printf("  %-30s %d\n", tag, report.Tags[tag])
	}
	fmt.Println()
	for _, o := range []relevance.Outcome{
		relevance.OutcomeManualReview,
		relevance.OutcomeMissingText,
		relevance.OutcomeAuthType,
		relevance.OutcomeNoFilename,
		relevance.OutcomeUnknownDetermination,
	} {
		if n := report.Outcomes[o]; n > 0 {
			fmt.Printf("  %-30s %d\n", o, n)
		}
	}
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Manifest: %s\n", outputPath)
	return nil
}
