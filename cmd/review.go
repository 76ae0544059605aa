package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"labelocr/internal/cache"
	"labelocr/internal/cleanup"
	"labelocr/internal/logger"
	"labelocr/internal/manifest"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List Manual_Review documents and optionally delete their files",
	Long: `List every document whose final_determination is Manual_Review.

After confirmation (type 'yes', or pass --yes) the PDF, the raw text artifact,
the OCR artifact and their sidecars are deleted for each listed document. Each
deletion, missing file and failure is reported.`,
	Example: `  # Show the documents that need manual review
  labelocr review

  # Delete their files without prompting
  labelocr review --yes`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().String("manifest", "", "Output manifest of the OCR stage (default: OUTPUT_MANIFEST_PATH)")
	reviewCmd.Flags().Bool("yes", false, "Delete without asking for confirmation")
	reviewCmd.Flags().Bool("list", false, "Only list, never delete")
}

func runReview(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("review")

	manifestPath, _ := cmd.Flags().GetString("manifest")
	assumeYes, _ := cmd.Flags().GetBool("yes")
	listOnly, _ := cmd.Flags().GetBool("list")

	if manifestPath == "" {
		manifestPath = appConfig.OutputManifestPath
	}

	table, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}
	if !table.Has(manifest.ColFinal) {
		return fmt.Errorf("%s has no %s column; run 'labelocr ocr' first", manifestPath, manifest.ColFinal)
	}

	names := cleanup.ManualReview(table)
	fmt.Printf("\nDocuments requiring manual review (final_determination = Manual_Review): %d\n\n", len(names))
	for _, name := range names {
		fmt.Println(name)
	}
	if len(names) == 0 || listOnly {
		return nil
	}

	if !assumeYes {
		fmt.Print("\nDelete the PDF and text files of these documents? (type 'yes' to confirm): ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
			fmt.Println("Deletion cancelled.")
			return nil
		}
	}

	cleaner := cleanup.NewCleaner(
		appConfig.PDFDir,
		cache.NewStore(appConfig.RawTextDir, cache.StageExtract),
		cache.NewStore(appConfig.OCRTextDir, cache.StageOCR),
	)

	counts := map[cleanup.Outcome]int{}
	fmt.Println()
	for _, d := range cleaner.Delete(names) {
		counts[d.Outcome]++
		switch d.Outcome {
		case cleanup.Deleted:
			fmt.Printf("Deleted %s: %s\n", d.Kind, d.Path)
		case cleanup.NotFound:
			fmt.Printf("%s not found (already deleted?): %s\n", d.Kind, d.Path)
		case cleanup.Failed:
			fmt.Printf("Failed to delete %s at %s: %v\n", d.Kind, d.Path, d.Err)
		}
	}

	log.Info().
		Int("documents", len(names)).
		Int("deleted", counts[cleanup.Deleted]).
		Int("not_found", counts[cleanup.NotFound]).
		Int("failed", counts[cleanup.Failed]).
		Msg("Manual review cleanup finished")

	if counts[cleanup.Failed] > 0 {
		return fmt.Errorf("%d files could not be deleted", counts[cleanup.Failed])
	}
	return nil
}
