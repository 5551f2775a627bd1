package lexicon

import (
	"strings"
	"unicode"
)

type token struct {
	text       string // lower-cased
	start, end int    // byte offsets into the source string
}

// tokenize splits s into maximal runs of letters and digits.
func tokenize(s string) []token {
	var tokens []token
	start := -1
	for i, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			tokens = append(tokens, token{text: strings.ToLower(s[start:i]), start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: strings.ToLower(s[start:]), start: start, end: len(s)})
	}
	return tokens
}
