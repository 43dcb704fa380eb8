// Package normalize turns raw page text into indexable line segments.
// Normalization is pure and deterministic: the same input always yields
// the same ordered segment list.
package normalize

import (
	"regexp"
	"strings"
)

// MinSegmentLength is the minimum normalized line length that survives.
// Lines of this length or shorter are dropped and never stored.
const MinSegmentLength = 3

// nonAlnumRegex matches every run of characters that is not a letter,
// digit, or space.
var nonAlnumRegex = regexp.MustCompile(`[^a-zA-Z0-9 ]+`)

// whitespaceRegex matches runs of whitespace for collapsing.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Line normalizes a single raw line: strips everything that is not a
// letter, digit, or space, collapses whitespace runs to one space, trims,
// and lowercases. Returns the empty string for lines that do not survive
// the minimum-length filter.
func Line(raw string) string {
	s := nonAlnumRegex.ReplaceAllString(raw, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) <= MinSegmentLength {
		return ""
	}
	return s
}

// Page splits raw page text on line breaks and normalizes each line.
// The result preserves page order; line numbers are 1-based and dense
// over the surviving segments (a dropped line does not leave a gap).
func Page(raw string) []string {
	var out []string
	for _, candidate := range strings.Split(raw, "\n") {
		if line := Line(candidate); line != "" {
			out = append(out, line)
		}
	}
	return out
}
