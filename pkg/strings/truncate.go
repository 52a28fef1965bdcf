package strings

import (
	"strings"
)

// DefaultMaxLen is the cell width used for error messages and descriptions
// in tabular output.
const DefaultMaxLen = 80

// MinTruncateLen leaves room for one character plus "...".
const MinTruncateLen = 4

// Truncate collapses s onto a single line and shortens it to maxLen runes,
// ending in "..." when cut. maxLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
