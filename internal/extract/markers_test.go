package extract

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestBookendMarkerCompleteness(t *testing.T) {
	pages := []string{"first page", "", "third ÄÖÜ page"}
	text := Bookend(pages)

	for i := range pages {
		n := i + 1
		for _, marker := range []string{
			fmt.Sprintf("***PAGE %d START***", n),
			fmt.Sprintf("***PAGE %d END***", n),
		} {
			if c := strings.Count(text, marker); c != 1 {
				t.Errorf("marker %q appears %d times, want 1", marker, c)
			}
		}
	}
	if strings.Contains(text, "***PAGE 4 START***") {
		t.Error("unexpected marker beyond the last page")
	}
	if got := strings.Count(text, "START***"); got != len(pages) {
		t.Errorf("found %d START markers, want %d", got, len(pages))
	}
}

func TestBookendExactLayout(t *testing.T) {
	got := Bookend([]string{"a"})
	want := "\n\n***PAGE 1 START***\n\na\n\n***PAGE 1 END***\n\n"
	if got != want {
		t.Errorf("Bookend() = %q, want %q", got, want)
	}
}

func TestPageLengthsCountsCharacters(t *testing.T) {
	got := PageLengths([]string{"abc", "", "äöü"})
	want := []int{3, 0, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PageLengths() = %v, want %v", got, want)
	}
	if total := TotalLength([]string{"abc", "äöü"}); total != 6 {
		t.Errorf("TotalLength() = %d, want 6", total)
	}
}
