package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"labelocr/pkg/models"
)

// trailerDelimiter separates page text from the metadata block.
const trailerDelimiter = "---- labelocr metadata: not label text ----"

// Trailer keys.
const (
	keyPageLengths     = "page_lengths"
	keyTextLength      = "text_length"
	keyPreProduct      = "pre_ocr_product_name"
	keyPreRegistration = "pre_ocr_registration_number"
	keyPreBoilerplate  = "pre_ocr_boilerplate"
	keyRequirement     = "ocr_requirement"
	keyReason          = "ocr_reason"
	keyOCRPages        = "ocr_pages"
	keyPostLengths     = "post_ocr_page_lengths"
	keyPostProduct     = "post_ocr_product_name"
	keyPostReg         = "post_ocr_registration_number"
	keyPostBoilerplate = "post_ocr_boilerplate"
	keyVerdict         = "ocr_v_original"
	keyFinal           = "final_determination"

	// keyTrailerBytes is always the last line: the byte length of the block
	// before it, from the newline preceding the delimiter.
	keyTrailerBytes = "trailer_bytes"
)

const (
	tailBytes = 4096
	tailLines = 40

	// sizeLineBytes bounds the read that locates the trailer_bytes line.
	sizeLineBytes = 64

	// maxTrailerBytes caps a sized tail read.
	maxTrailerBytes = 1 << 20
)

// encodeTrailer renders the metadata block followed by its size line.
func encodeTrailer(a models.Assessment) string {
	block := trailerFields(a)
	return fmt.Sprintf("%s%s: %d\n", block, keyTrailerBytes, len(block))
}

func trailerFields(a models.Assessment) string {
	var b strings.Builder
	line := func(key, value string) {
		fmt.Fprintf(&b, "%s: %s\n", key, value)
	}

	b.WriteString("\n")
	b.WriteString(trailerDelimiter)
	b.WriteString("\n")
	line(keyPageLengths, models.FormatInts(a.PageLengths))
	line(keyTextLength, strconv.Itoa(a.TextLength))
	line(keyPreProduct, strconv.FormatBool(a.PreOCR.ProductName))
	line(keyPreRegistration, strconv.FormatBool(a.PreOCR.RegistrationNumber))
	line(keyPreBoilerplate, strconv.FormatBool(a.PreOCR.Boilerplate))

	if a.Requirement == "" {
		return b.String()
	}
	line(keyRequirement, string(a.Requirement))
	line(keyReason, strings.ReplaceAll(a.Reason, "\n", " "))
	line(keyOCRPages, models.FormatInts(a.OCRPages))
	if a.PostOCR != nil {
		line(keyPostLengths, models.FormatInts(a.OCRPageLengths))
		line(keyPostProduct, strconv.FormatBool(a.PostOCR.ProductName))
		line(keyPostReg, strconv.FormatBool(a.PostOCR.RegistrationNumber))
		line(keyPostBoilerplate, strconv.FormatBool(a.PostOCR.Boilerplate))
	}
	line(keyVerdict, string(a.Verdict))
	line(keyFinal, string(a.Final))
	return b.String()
}

// readTail returns the last lines of the file. When the file ends with a
// trailer_bytes line the read covers exactly that trailer, up to
// maxTrailerBytes; otherwise at most tailBytes are read. A partial first line
// is dropped.
func readTail(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()

	window := int64(tailBytes)
	if n, ok := trailerWindow(f, size); ok {
		window = n
	}
	offset := size - window
	if offset < 0 {
		offset = 0
	}

	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	lines := strings.Split(strings.TrimSuffix(string(buf), "\n"), "\n")
	if offset > 0 && len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return lines, nil
}

// trailerWindow reads the size line at the end of the file and returns how
// many trailing bytes hold the whole trailer, plus one byte before it so the
// first line read is always partial.
func trailerWindow(f *os.File, size int64) (int64, bool) {
	n := int64(sizeLineBytes)
	if n > size {
		n = size
	}
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, size-n); err != nil && !errors.Is(err, io.EOF) {
		return 0, false
	}

	tail := strings.TrimSuffix(string(buf), "\n")
	i := strings.LastIndex(tail, "\n")
	if i < 0 {
		return 0, false
	}
	last := tail[i+1:]
	key, value, ok := strings.Cut(last, ":")
	if !ok || strings.TrimSpace(key) != keyTrailerBytes {
		return 0, false
	}
	block, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || block <= 0 || block > maxTrailerBytes {
		return 0, false
	}
	return int64(block) + int64(len(buf)-i-1) + 1, true
}

// parseTrailer restores an assessment from the lines following the last
// delimiter. requireOCR demands the OCR stage fields.
func parseTrailer(lines []string, requireOCR bool) (models.Assessment, error) {
	var a models.Assessment

	start := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == trailerDelimiter {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return a, fmt.Errorf("metadata delimiter not found")
	}

	fields := make(map[string]string)
	for _, l := range lines[start:] {
		key, value, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	p := fieldParser{fields: fields}
	a.PageLengths = p.numbers(keyPageLengths, true)
	a.TextLength = p.number(keyTextLength)
	a.PreOCR = models.QualitySignals{
		ProductName:        p.flag(keyPreProduct),
		RegistrationNumber: p.flag(keyPreRegistration),
		Boilerplate:        p.flag(keyPreBoilerplate),
	}

	if _, ok := fields[keyRequirement]; ok || requireOCR {
		a.Requirement = models.OCRRequirement(p.text(keyRequirement))
		a.Reason = fields[keyReason]
		a.OCRPages = p.numbers(keyOCRPages, false)
		if _, ok := fields[keyPostProduct]; ok {
			a.OCRPageLengths = p.numbers(keyPostLengths, true)
			a.PostOCR = &models.QualitySignals{
				ProductName:        p.flag(keyPostProduct),
				RegistrationNumber: p.flag(keyPostReg),
				Boilerplate:        p.flag(keyPostBoilerplate),
			}
		}
		a.Verdict = models.Verdict(p.text(keyVerdict))
		a.Final = models.Determination(p.text(keyFinal))
	}

	if p.err != nil {
		return models.Assessment{}, p.err
	}
	if err := validate(a, requireOCR); err != nil {
		return models.Assessment{}, err
	}
	return a, nil
}

// fieldParser keeps the first error so a trailer is parsed in one pass.
type fieldParser struct {
	fields map[string]string
	err    error
}

func (p *fieldParser) text(key string) string {
	v, ok := p.fields[key]
	if !ok && p.err == nil {
		p.err = fmt.Errorf("missing %s", key)
	}
	return v
}

func (p *fieldParser) number(key string) int {
	v := p.text(key)
	if p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
	return n
}

func (p *fieldParser) flag(key string) bool {
	v := p.text(key)
	if p.err != nil {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
	return b
}

func (p *fieldParser) numbers(key string, required bool) []int {
	v, ok := p.fields[key]
	if !ok {
		if required && p.err == nil {
			p.err = fmt.Errorf("missing %s", key)
		}
		return nil
	}
	xs, err := models.ParseInts(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
	return xs
}

// validate checks that a restored assessment is complete enough to stand in
// for recomputation.
func validate(a models.Assessment, requireOCR bool) error {
	if a.PageLengths == nil {
		return fmt.Errorf("no page lengths recorded")
	}
	if !requireOCR {
		return nil
	}
	if !a.Requirement.Valid() {
		return fmt.Errorf("invalid requirement %q", a.Requirement)
	}
	if !a.Verdict.Valid() {
		return fmt.Errorf("invalid verdict %q", a.Verdict)
	}
	if !a.Final.Valid() {
		return fmt.Errorf("invalid final determination %q", a.Final)
	}
	if a.Requirement.NeedsOCR() && a.PostOCR == nil {
		return fmt.Errorf("post-OCR signals missing for %s", a.Requirement)
	}
	return nil
}
