package store

import (
	"strings"
	"unicode"
)

// BuildMatchQuery turns free text into an FTS5 MATCH expression: each
// whitespace-separated term, reduced to its letters, numbers and marks,
// becomes a quoted prefix match and terms are ANDed. Returns "" when no term
// survives.
func BuildMatchQuery(query string) string {
	var terms []string
	for _, field := range strings.Fields(query) {
		term := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
				return r
			}
			return -1
		}, field)
		if term == "" {
			continue
		}
		terms = append(terms, `"`+term+`"*`)
	}
	return strings.Join(terms, " ")
}
