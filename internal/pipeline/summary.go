package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"labelocr/pkg/models"
)

// Summary aggregates task results for the end-of-run report.
type Summary struct {
	Total        int
	ByStatus     map[Status]int
	ByFinal      map[models.Determination]int
	ManualReview []string
	Failures     []Result
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		ByStatus: make(map[Status]int),
		ByFinal:  make(map[models.Determination]int),
	}
}

// Add records one result.
func (s *Summary) Add(r Result) {
	s.Total++
	s.ByStatus[r.Status]++
	if r.Failed() {
		s.Failures = append(s.Failures, r)
	}
	if r.Assessment == nil || r.Assessment.Final == "" {
		return
	}
	s.ByFinal[r.Assessment.Final]++
	if r.Assessment.Final == models.DeterminationManualReview {
		s.ManualReview = append(s.ManualReview, r.Filename)
	}
}

// Print writes the summary banner.
func (s *Summary) Print(w io.Writer) {
	sort.Strings(s.ManualReview)
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Index < s.Failures[j].Index })

	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w, "                 SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Documents: %d\n", s.Total)

	fmt.Fprintln(w, "\nBy status:")
	for _, k := range sortedKeys(s.ByStatus) {
		fmt.Fprintf(w, "  %-26s %d\n", k, s.ByStatus[k])
	}

	if len(s.ByFinal) > 0 {
		fmt.Fprintln(w, "\nFinal determination:")
		for _, k := range sortedKeys(s.ByFinal) {
			fmt.Fprintf(w, "  %-26s %d\n", k, s.ByFinal[k])
		}
	}

	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, r := range s.Failures {
			fmt.Fprintf(w, "  [%d] %s (%s): %v\n", r.Index, r.Filename, r.Kind, r.Err)
		}
	}

	if len(s.ManualReview) > 0 {
		fmt.Fprintf(w, "\nManual_Review (%d):\n", len(s.ManualReview))
		for _, name := range s.ManualReview {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 50))
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
