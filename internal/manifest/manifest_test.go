package manifest

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"labelocr/pkg/models"
)

const sampleCSV = `pdf_filename,Product No.,Auth Type,each_page_len,text_contains_product_name,text_contains_epa_no,text_contains_children,Company
ALPHA_Label.pdf,100-1-9,primary label,"[50, 800]",True,False,False,Acme
BETA_Label.pdf,200-2-9,supplemental label,,,,,Beta Corp
,300-3-9,primary label,,,,,Gamma
`

func TestParseDocuments(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("Len = %d, want 3", table.Len())
	}

	alpha, err := table.Document(0)
	if err != nil {
		t.Fatalf("Document(0): %v", err)
	}
	want := models.Document{
		Index:          0,
		Filename:       "ALPHA_Label.pdf",
		RegistrationID: "100-1-9",
		AuthType:       "primary label",
		PageLengths:    []int{50, 800},
		PreOCR:         &models.QualitySignals{ProductName: true},
	}
	if !reflect.DeepEqual(alpha, want) {
		t.Errorf("Document(0) = %+v, want %+v", alpha, want)
	}

	beta, err := table.Document(1)
	if err != nil {
		t.Fatalf("Document(1): %v", err)
	}
	if beta.PageLengths != nil || beta.PreOCR != nil {
		t.Errorf("blank cells should stay unset: %+v", beta)
	}

	blank, err := table.Document(2)
	if err != nil {
		t.Fatalf("Document(2): %v", err)
	}
	if blank.Filename != "" {
		t.Errorf("Filename = %q, want empty", blank.Filename)
	}
}

func TestDocumentNanCells(t *testing.T) {
	csv := "pdf_filename,Product No.,each_page_len\nZETA_Label.pdf,nan,nan\nnan,NaN,\n"
	table, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	zeta, err := table.Document(0)
	if err != nil {
		t.Fatalf("Document(0): %v", err)
	}
	if zeta.RegistrationID != "" || zeta.PageLengths != nil {
		t.Errorf("nan cells should read as blank: %+v", zeta)
	}

	blank, err := table.Document(1)
	if err != nil {
		t.Fatalf("Document(1): %v", err)
	}
	if blank.Filename != "" || blank.RegistrationID != "" {
		t.Errorf("nan cells should read as blank: %+v", blank)
	}
}

func TestParseAliases(t *testing.T) {
	csv := "filename,registration_id,auth_type,page_lengths\nalpha.pdf,100-1-9,primary label,[10]\n"
	table, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc, err := table.Document(0)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.Filename != "alpha.pdf" || doc.RegistrationID != "100-1-9" || len(doc.PageLengths) != 1 {
		t.Errorf("aliases not resolved: %+v", doc)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr error
		row     bool
	}{
		{"no filename column", "name,value\na,b\n", ErrMissingColumn, false},
		{"empty", "", ErrMissingColumn, false},
		{"bad lengths", "pdf_filename,each_page_len\na.pdf,\"[1, x]\"\n", ErrInvalidRow, true},
		{"negative length", "pdf_filename,each_page_len\na.pdf,[-4]\n", ErrInvalidRow, true},
		{"bad bool", "pdf_filename,text_contains_product_name,text_contains_epa_no,text_contains_children\na.pdf,maybe,true,true\n", ErrInvalidRow, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(strings.NewReader(tt.csv))
			if !tt.row {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Parse err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if _, err := table.Document(0); !errors.Is(err, tt.wantErr) {
				t.Errorf("Document err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordOCRAndWrite(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table.EnsureColumns(OCRColumns...)

	table.RecordOCR(0, models.Assessment{
		PageLengths:    []int{50, 800},
		PreOCR:         models.QualitySignals{ProductName: true},
		Requirement:    models.RequirementPageSpecific,
		Reason:         "1 of 2 pages have fewer than 300 characters (pages: 1)",
		OCRPages:       []int{1},
		PostOCR:        &models.QualitySignals{ProductName: true},
		OCRPageLengths: []int{600, 800},
		Verdict:        models.VerdictOCR,
		Final:          models.DeterminationOCR,
	})
	table.RecordError(0, ColOCRError, nil)

	path := filepath.Join(t.TempDir(), "out", "manifest.csv")
	if err := table.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	back, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	checks := map[string]string{
		ColRequirement: "page_specific",
		ColOCRPages:    "[1]",
		ColPostLengths: "[600, 800]",
		ColPostProduct: "true",
		ColVerdict:     "OCR",
		ColFinal:       "OCR",
		ColOCRError:    "",
		"Company":      "Acme",
		ColPreProduct:  "True",
	}
	for col, want := range checks {
		if got := back.Get(0, col); got != want {
			t.Errorf("%s = %q, want %q", col, got, want)
		}
	}
	if back.Determination(0) != models.DeterminationOCR {
		t.Errorf("Determination = %q", back.Determination(0))
	}
	if got := back.Get(1, ColFinal); got != "" {
		t.Errorf("untouched row gained %s = %q", ColFinal, got)
	}
}

func TestSetAppendsColumn(t *testing.T) {
	table := New("pdf_filename")
	table.AddRow("a.pdf")
	table.AddRow("b.pdf")

	table.Set(1, ColRelevance, "ag")

	header := table.Header()
	if header[len(header)-1] != ColRelevance {
		t.Fatalf("header = %v", header)
	}
	if table.Get(0, ColRelevance) != "" || table.Get(1, ColRelevance) != "ag" {
		t.Errorf("unexpected values: %v", table.Rows())
	}
}
