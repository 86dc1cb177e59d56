package compare

import (
	"strings"
	"unicode/utf8"
)

// DefaultTolerance is the largest normalized edit distance still treated as
// the same word.
const DefaultTolerance = 0.4

// FuzzyEqual reports whether two tokens should count as the same word despite
// recognition noise. The distance is computed case-insensitively, but the
// ratio denominator uses the lengths of the tokens as given.
func FuzzyEqual(a, b string, tolerance float64) bool {
	if a == "" && b == "" {
		return true
	}
	dist := Levenshtein(strings.ToLower(a), strings.ToLower(b))
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return true
	}
	return float64(dist)/float64(maxLen) <= tolerance
}
