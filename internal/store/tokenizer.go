package store

import (
	"strings"
	"unicode"
)

// TokenizeLease splits lease text into lowercase alphanumeric terms. Any run
// of non-alphanumeric characters is a separator, so "$120,000/yr" yields
// "120", "000", "yr". The same function analyzes both indexed content and
// queries; an asymmetric analyzer would silently break recall.
func TokenizeLease(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
