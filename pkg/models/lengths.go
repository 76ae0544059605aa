package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatInts renders a page sequence as "[50, 800]", the form used in
// manifests and artifact trailers.
func FormatInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ParseInts reads a sequence written by FormatInts. Brackets are optional and
// both commas and spaces separate values. Negative counts are rejected.
func ParseInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	xs := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid count %q: %w", f, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative count %d", n)
		}
		xs = append(xs, n)
	}
	return xs, nil
}
