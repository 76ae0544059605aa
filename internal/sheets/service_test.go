package sheets

import (
	"reflect"
	"testing"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"edit url", "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0", "1AbC-dEf_123", false},
		{"bare id", "1AbCdEfGhIjKlMnOpQrStUvWx", "1AbCdEfGhIjKlMnOpQrStUvWx", false},
		{"not a sheet", "https://example.com/doc", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractSpreadsheetID(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for n, want := range tests {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTableValues(t *testing.T) {
	values := tableValues([]string{"pdf_filename", "final_determination"}, [][]string{
		{"a.pdf", "OCR"},
		{"b.pdf"},
	})

	want := [][]interface{}{
		{"pdf_filename", "final_determination"},
		{"a.pdf", "OCR"},
		{"b.pdf", ""},
	}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("got %v, want %v", values, want)
	}
	if got := tableRange("OCR_Results", 2, len(values)); got != "'OCR_Results'!A1:B3" {
		t.Errorf("tableRange = %q", got)
	}
}
