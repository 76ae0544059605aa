package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Page markers bracket every page in concatenated text. Downstream consumers
// map extracted facts back to source pages through them, so the format is
// fixed.
const (
	pageStartFormat = "\n\n***PAGE %d START***\n\n"
	pageEndFormat   = "\n\n***PAGE %d END***\n\n"
)

// Bookend concatenates page texts, wrapping page i (1-based) in its START and
// END markers.
func Bookend(pages []string) string {
	var b strings.Builder
	for i, text := range pages {
		fmt.Fprintf(&b, pageStartFormat, i+1)
		b.WriteString(text)
		fmt.Fprintf(&b, pageEndFormat, i+1)
	}
	return b.String()
}

// PageLengths returns the character count of each page.
func PageLengths(pages []string) []int {
	lengths := make([]int, len(pages))
	for i, p := range pages {
		lengths[i] = utf8.RuneCountInString(p)
	}
	return lengths
}

// TotalLength returns the character count of all pages together.
func TotalLength(pages []string) int {
	total := 0
	for _, n := range PageLengths(pages) {
		total += n
	}
	return total
}
