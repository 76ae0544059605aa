package relevance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"labelocr/internal/cache"
	"labelocr/internal/manifest"
	"labelocr/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Tag
	}{
		{"both", "AGRICULTURAL USE REQUIREMENTS ... restricted-entry interval (REI) of 12 hours", TagBoth},
		{"ag split across lines", "Agricultural Use\nRequire-\nments", TagAg},
		{"rei", "Do not enter during the Restricted Entry Interval", TagREI},
		{"none", "For residential use only", TagNone},
		{"empty", "", TagNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func writeArtifact(t *testing.T, store *cache.Store, pdf, body string) {
	t.Helper()
	a := models.Assessment{PageLengths: []int{len(body)}, TextLength: len(body)}
	if _, err := store.Write(pdf, body, a, false); err != nil {
		t.Fatalf("Write(%s): %v", pdf, err)
	}
}

func TestTaggerRun(t *testing.T) {
	dir := t.TempDir()
	raw := cache.NewStore(filepath.Join(dir, "raw"), cache.StageExtract)
	ocrStore := cache.NewStore(filepath.Join(dir, "ocr"), cache.StageOCR)

	// Raw text of A lacks the phrase OCR recovered.
	writeArtifact(t, raw, "A.pdf", "garbled")
	writeArtifact(t, ocrStore, "A.pdf", "Agricultural Use Requirements")
	writeArtifact(t, raw, "B.pdf", "Restricted-Entry Interval: 4 hours")
	writeArtifact(t, raw, "C.pdf", "Agricultural Use Requirements")
	writeArtifact(t, raw, "E.pdf", "Agricultural Use Requirements")

	csv := `pdf_filename,Auth Type,final_determination
A.pdf,ROUTINE,OCR
B.pdf,ROUTINE,Original
C.pdf,ROUTINE,Manual_Review
D.pdf,ROUTINE,Original
E.pdf,SPECIAL,
,ROUTINE,Original
`
	table, err := manifest.Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	report := NewTagger(raw, ocrStore, "routine").Run(table)

	want := []string{"ag", "rei", "", "", "", ""}
	for row, w := range want {
		if got := table.Get(row, manifest.ColRelevance); got != w {
			t.Errorf("row %d relevance = %q, want %q", row, got, w)
		}
	}

	wantOutcomes := map[Outcome]int{
		OutcomeTagged:       2,
		OutcomeManualReview: 1,
		OutcomeMissingText:  1,
		OutcomeAuthType:     1,
		OutcomeNoFilename:   1,
	}
	for o, n := range wantOutcomes {
		if report.Outcomes[o] != n {
			t.Errorf("outcome %s = %d, want %d", o, report.Outcomes[o], n)
		}
	}
	if report.Tags[TagAg] != 1 || report.Tags[TagREI] != 1 {
		t.Errorf("tags = %v", report.Tags)
	}
}

func TestTagRowBlankDeterminationUsesRawText(t *testing.T) {
	dir := t.TempDir()
	raw := cache.NewStore(dir, cache.StageExtract)
	writeArtifact(t, raw, "A.pdf", "AGRICULTURAL USE REQUIREMENTS / Restricted-Entry Interval")

	table := manifest.New(manifest.ColFilename)
	table.AddRow("A.pdf")

	outcome, tag, err := NewTagger(raw, cache.NewStore(filepath.Join(dir, "none"), cache.StageOCR), "").TagRow(table, 0)
	if err != nil {
		t.Fatalf("TagRow: %v", err)
	}
	if outcome != OutcomeTagged || tag != TagBoth {
		t.Errorf("got %s / %s", outcome, tag)
	}
	if _, err := os.Stat(filepath.Join(dir, "none")); !os.IsNotExist(err) {
		t.Error("OCR store touched for an Original row")
	}
}
