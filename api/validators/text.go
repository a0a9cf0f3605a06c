package validators

import (
	"strings"
	"unicode"
)

// CleanText trims s, drops control characters other than newline and tab,
// and cuts it to at most maxRunes runes. maxRunes <= 0 means no limit.
func CleanText(s string, maxRunes int) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(s))

	if maxRunes <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}
