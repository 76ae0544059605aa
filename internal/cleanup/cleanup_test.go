package cleanup

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"labelocr/internal/cache"
	"labelocr/internal/manifest"
)

func TestManualReview(t *testing.T) {
	csv := `pdf_filename,final_determination
A.pdf,OCR
B.pdf,Manual_Review
,Manual_Review
C.pdf,Original
D.pdf,Manual_Review
`
	table, err := manifest.Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := ManualReview(table); !reflect.DeepEqual(got, []string{"B.pdf", "D.pdf"}) {
		t.Errorf("ManualReview = %v", got)
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	pdfDir := filepath.Join(dir, "PDFs")
	raw := cache.NewStore(filepath.Join(pdfDir, "label_txt"), cache.StageExtract)
	ocr := cache.NewStore(filepath.Join(pdfDir, "label_txt_ocr"), cache.StageOCR)
	c := NewCleaner(pdfDir, raw, ocr)

	// B has a PDF, a raw text artifact and an OCR artifact without sidecar.
	targets := c.Targets("B.pdf")
	for _, i := range []int{0, 1, 3} {
		if err := os.MkdirAll(filepath.Dir(targets[i].Path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(targets[i].Path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := c.Delete([]string{"B.pdf"})
	if len(got) != 5 {
		t.Fatalf("got %d deletions, want 5", len(got))
	}

	want := []Outcome{Deleted, Deleted, NotFound, Deleted, NotFound}
	for i, d := range got {
		if d.Outcome != want[i] {
			t.Errorf("%s: outcome %s, want %s", d.Kind, d.Outcome, want[i])
		}
		if _, err := os.Stat(d.Path); !os.IsNotExist(err) {
			t.Errorf("%s still exists", d.Path)
		}
	}

	if filepath.Base(targets[3].Path) != "B_OCR.txt" || filepath.Base(targets[4].Path) != "B_OCR.json" {
		t.Errorf("unexpected OCR targets: %+v", targets[3:])
	}
}
