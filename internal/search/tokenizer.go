package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinTokenLength drops one-character tokens such as sizes "M"/"S" or the
// possessive "s", matching the usual count-vectorizer token pattern.
const DefaultMinTokenLength = 2

// Tokenize splits text into lowercase runs of letters and digits, skipping runs
// shorter than minLen runes.
func Tokenize(text string, minLen int) []string {
	f := func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	}
	fields := strings.FieldsFunc(text, f)
	var tokens []string
	for _, field := range fields {
		if utf8.RuneCountInString(field) < minLen {
			continue
		}
		tokens = append(tokens, strings.ToLower(field))
	}
	return tokens
}
