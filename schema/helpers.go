package schema

import (
	"strings"
	"unicode"
)

// normalizeLabel lowercases a step label and drops surrounding punctuation and spaces.
func normalizeLabel(label string) string {
	trimmed := strings.TrimFunc(label, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.ReplaceAll(strings.ToLower(trimmed), " ", "_")
}
