// Package manifest reads the product manifest produced by ingestion and
// writes it back augmented with the columns each stage adds.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"labelocr/pkg/models"
)

// Input columns.
const (
	ColFilename       = "pdf_filename"
	ColPageLengths    = "each_page_len"
	ColAuthType       = "Auth Type"
	ColRegistrationID = "Product No."
)

// First pass columns.
const (
	ColTextLength      = "txt_file_len"
	ColAllPagesText    = "all_pages_have_text"
	ColPreProduct      = "text_contains_product_name"
	ColPreRegistration = "text_contains_epa_no"
	ColPreBoilerplate  = "text_contains_children"
	ColExtractError    = "extract_error"
)

// OCR stage columns.
const (
	ColRequirement      = "OCR_needed"
	ColReason           = "runOCR_reason"
	ColOCRPages         = "OCR_pages"
	ColPostLengths      = "Post_OCR_char_per_page"
	ColPostProduct      = "OCR_text_contains_product_name"
	ColPostRegistration = "OCR_text_contains_epa_no"
	ColPostBoilerplate  = "OCR_text_contains_children"
	ColVerdict          = "OCR_v_Original"
	ColFinal            = "final_determination"
	ColOCRError         = "ocr_error"
)

// ColRelevance is written by the relevance pass.
const ColRelevance = "ag_rei_relevance"

// aliases maps a column to other headers accepted for it on input.
var aliases = map[string][]string{
	ColFilename:        {"filename", "pdf_file"},
	ColPageLengths:     {"page_lengths", "pre_ocr_char_per_page"},
	ColAuthType:        {"auth_type", "authorization_type"},
	ColRegistrationID:  {"registration_id", "registration_number", "epa_reg_no"},
	ColPreBoilerplate:  {"text_contains_boilerplate"},
	ColPreRegistration: {"text_contains_registration"},
}

var (
	// ErrInvalidRow is returned when a row cannot be turned into a Document.
	ErrInvalidRow = errors.New("invalid manifest row")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing manifest column")
)

// Table is a manifest held in memory. Unknown columns are carried through
// untouched. A Table is not safe for concurrent use.
type Table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	t := &Table{header: append([]string(nil), header...)}
	t.reindex()
	return t
}

// Read loads a CSV manifest. The filename column must be present.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a CSV manifest from r.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s (empty manifest)", ErrMissingColumn, ColFilename)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := New(header...)
	if _, ok := t.column(ColFilename); !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColFilename)
	}

	for _, rec := range records[1:] {
		row := make([]string, len(t.header))
		copy(row, rec)
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.header))
	for i, h := range t.header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
}

// column resolves a canonical column name, then its aliases.
func (t *Table) column(name string) (int, bool) {
	if i, ok := t.index[strings.ToLower(name)]; ok {
		return i, true
	}
	for _, alias := range aliases[name] {
		if i, ok := t.index[strings.ToLower(alias)]; ok {
			return i, true
		}
	}
	return 0, false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Header returns a copy of the header row.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Rows returns the header followed by every data row.
func (t *Table) Rows() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Header())
	for _, r := range t.rows {
		out = append(out, append([]string(nil), r...))
	}
	return out
}

// AddRow appends a data row, padding or truncating it to the header width.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.header))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Has reports whether the column (or one of its aliases) exists.
func (t *Table) Has(col string) bool {
	_, ok := t.column(col)
	return ok
}

// Get returns the trimmed cell value, empty when the column is absent.
func (t *Table) Get(row int, col string) string {
	i, ok := t.column(col)
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	return strings.TrimSpace(t.rows[row][i])
}

// Set writes a cell, appending the column when it does not exist yet.
func (t *Table) Set(row int, col, value string) {
	if row < 0 || row >= len(t.rows) {
		return
	}
	i, ok := t.column(col)
	if !ok {
		t.header = append(t.header, col)
		for r := range t.rows {
			t.rows[r] = append(t.rows[r], "")
		}
		t.reindex()
		i = len(t.header) - 1
	}
	t.rows[row][i] = value
}

// EnsureColumns appends any missing columns so the written layout is stable
// from the first checkpoint on.
func (t *Table) EnsureColumns(cols ...string) {
	for _, col := range cols {
		if t.Has(col) {
			continue
		}
		t.header = append(t.header, col)
		for r := range t.rows {
			t.rows[r] = append(t.rows[r], "")
		}
		t.reindex()
	}
}

// Document validates a row and converts it. An empty filename is not an
// error here; the pipeline records it as skipped.
func (t *Table) Document(row int) (models.Document, error) {
	doc := models.Document{
		Index:          row,
		Filename:       t.Get(row, ColFilename),
		RegistrationID: t.Get(row, ColRegistrationID),
		AuthType:       t.Get(row, ColAuthType),
	}
	if strings.EqualFold(doc.Filename, "nan") {
		doc.Filename = ""
	}
	if strings.EqualFold(doc.RegistrationID, "nan") {
		doc.RegistrationID = ""
	}

	if raw := t.Get(row, ColPageLengths); raw != "" && !strings.EqualFold(raw, "nan") {
		lengths, err := models.ParseInts(raw)
		if err != nil {
			return doc, fmt.Errorf("%w %d: %s: %v", ErrInvalidRow, row, ColPageLengths, err)
		}
		doc.PageLengths = lengths
	}

	signals, err := t.signals(row, ColPreProduct, ColPreRegistration, ColPreBoilerplate)
	if err != nil {
		return doc, fmt.Errorf("%w %d: %v", ErrInvalidRow, row, err)
	}
	doc.PreOCR = signals
	return doc, nil
}

// signals reads three boolean columns. It returns nil when any is blank.
func (t *Table) signals(row int, product, registration, boilerplate string) (*models.QualitySignals, error) {
	var vals [3]bool
	for i, col := range []string{product, registration, boilerplate} {
		raw := t.Get(row, col)
		if raw == "" || strings.EqualFold(raw, "nan") {
			return nil, nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", col, err)
		}
		vals[i] = b
	}
	return &models.QualitySignals{ProductName: vals[0], RegistrationNumber: vals[1], Boilerplate: vals[2]}, nil
}

// Determination returns the final determination recorded for a row, empty
// when the OCR stage has not run.
func (t *Table) Determination(row int) models.Determination {
	v := t.Get(row, ColFinal)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return models.Determination(v)
}

// WriteFile writes the table as CSV through a temporary file and a rename,
// so a reader never sees a partial checkpoint.
func (t *Table) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create manifest checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if err := t.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move manifest into place: %w", err)
	}
	return nil
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Rows()); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
