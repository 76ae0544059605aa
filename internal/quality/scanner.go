// Package quality computes the content signals used to decide whether an
// extracted label text can be trusted: the product keyword taken from the
// file name, the registration number prefix, and a fuzzy check for the
// mandatory "keep out of reach of children" phrase.
package quality

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"

	"labelocr/pkg/models"
)

const (
	// DefaultWindow is the width of the sliding window compared against the
	// boilerplate targets.
	DefaultWindow = 8

	// DefaultCutoff is the minimum similarity ratio accepted as a match.
	DefaultCutoff = 0.8
)

// DefaultBoilerplateTargets are the word of the mandatory phrase that survives
// OCR noise best, plus its most common misspelling on printed labels.
var DefaultBoilerplateTargets = []string{"children", "childern"}

// Scanner evaluates quality signals against text blobs.
type Scanner struct {
	targets []string
	window  int
	cutoff  float64
}

// NewScanner returns a scanner with the default boilerplate targets.
func NewScanner() *Scanner {
	return &Scanner{
		targets: DefaultBoilerplateTargets,
		window:  DefaultWindow,
		cutoff:  DefaultCutoff,
	}
}

// Scan computes all three signals for text belonging to filename/registrationID.
func (s *Scanner) Scan(text, filename, registrationID string) models.QualitySignals {
	return models.QualitySignals{
		ProductName:        ContainsProductName(text, ProductKeyword(filename)),
		RegistrationNumber: ContainsRegistration(text, registrationID),
		Boilerplate:        s.ContainsBoilerplate(text),
	}
}

// ProductKeyword derives the lowercase product token from a label file name:
// the part before the first underscore, or the whole stem.
func ProductKeyword(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if i := strings.Index(stem, "_"); i >= 0 {
		stem = stem[:i]
	}
	return stripSpace(strings.ToLower(stem))
}

// RegistrationPrefix returns the part of a registration identifier before its
// third dash-separated segment ("100-1347-1671" -> "100-1347"), or the whole
// identifier when it has fewer segments.
func RegistrationPrefix(id string) string {
	id = strings.TrimSpace(id)
	parts := strings.Split(id, "-")
	if len(parts) >= 3 {
		return strings.Join(parts[:2], "-")
	}
	return id
}

// ContainsProductName reports whether keyword appears in the lowercased,
// whitespace-free text. An empty keyword never matches.
func ContainsProductName(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(compact(text, false), keyword)
}

// ContainsRegistration reports whether the registration prefix, with
// separators removed, appears in the text normalized the same way. A blank or
// malformed identifier never matches; registration numbers are numeric, so a
// prefix without a digit ("nan", "n/a") is malformed.
func ContainsRegistration(text, registrationID string) bool {
	needle := compact(RegistrationPrefix(registrationID), true)
	if !strings.ContainsFunc(needle, unicode.IsDigit) {
		return false
	}
	return strings.Contains(compact(text, true), needle)
}

// ContainsBoilerplate slides a fixed-width window over the whitespace-free
// lowercase text and reports whether any window is close enough to one of the
// boilerplate targets. Missing spaces and single-character OCR errors still
// match.
func (s *Scanner) ContainsBoilerplate(text string) bool {
	runes := []rune(compact(text, false))
	if len(runes) < s.window {
		return false
	}

	seen := make(map[string]struct{}, len(runes))
	windows := make([][]string, 0, len(runes)-s.window+1)
	for i := 0; i+s.window <= len(runes); i++ {
		w := string(runes[i : i+s.window])
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		windows = append(windows, splitRunes(w))
	}

	for _, target := range s.targets {
		if closeMatch(splitRunes(target), windows, s.cutoff) {
			return true
		}
	}
	return false
}

// closeMatch mirrors a difflib close-match search: the target is the fixed
// second sequence and each candidate is screened by the cheap upper bounds
// before the full ratio is computed.
func closeMatch(target []string, candidates [][]string, cutoff float64) bool {
	m := difflib.NewMatcher(nil, target)
	for _, c := range candidates {
		m.SetSeq1(c)
		if m.RealQuickRatio() >= cutoff && m.QuickRatio() >= cutoff && m.Ratio() >= cutoff {
			return true
		}
	}
	return false
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// compact lowercases text, folds compatibility forms (ligatures, full-width
// digits) and drops whitespace; with dropDash it also removes hyphens.
func compact(text string, dropDash bool) string {
	text = norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) || (dropDash && r == '-') {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
