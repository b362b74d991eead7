// Package token provides token accounting for chunk sizing and embedding
// truncation. Counts must match the target embedding/LLM model, so the
// default implementation uses the model's own BPE encoding.
package token

import (
	"strings"
)

// Tokenizer counts and truncates text in model tokens.
// Implementations are pure and safe for concurrent use.
type Tokenizer interface {
	// Count returns the number of tokens in text.
	Count(text string) int

	// Truncate returns text cut to at most maxTokens tokens.
	Truncate(text string, maxTokens int) string

	// Tail returns the last maxTokens tokens of text, decoded back to a
	// string. Used to seed overlap across chunk boundaries.
	Tail(text string, maxTokens int) string
}

// WordTokenizer approximates token accounting with whitespace-delimited
// words. Deterministic and dependency-free; used in tests and as an
// offline fallback. Decode round-trips normalize whitespace to single
// spaces, which is exactly the guarantee the overlap contract needs.
type WordTokenizer struct{}

// NewWordTokenizer creates a word-level tokenizer.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{}
}

// Count returns the number of whitespace-delimited words.
func (t *WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// Truncate returns the first maxTokens words joined by single spaces.
func (t *WordTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ")
}

// Tail returns the last maxTokens words joined by single spaces.
func (t *WordTokenizer) Tail(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[len(words)-maxTokens:], " ")
}

var _ Tokenizer = (*WordTokenizer)(nil)
