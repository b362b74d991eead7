package token

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used by the OpenAI embedding models
// the corpus is embedded with (text-embedding-3-small and the GPT-4 family).
const DefaultEncoding = "cl100k_base"

// TiktokenTokenizer counts tokens with the model's own BPE encoding so
// chunk budgets line up with what the embedding backend actually sees.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer creates a tokenizer for the given encoding name.
// Empty name selects DefaultEncoding.
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (t *TiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most maxTokens tokens, decoded back.
func (t *TiktokenTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	toks := t.enc.Encode(text, nil, nil)
	if len(toks) <= maxTokens {
		return text
	}
	return t.enc.Decode(toks[:maxTokens])
}

// Tail returns the last maxTokens tokens of text, decoded back.
func (t *TiktokenTokenizer) Tail(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	toks := t.enc.Encode(text, nil, nil)
	if len(toks) <= maxTokens {
		return text
	}
	return t.enc.Decode(toks[len(toks)-maxTokens:])
}

var _ Tokenizer = (*TiktokenTokenizer)(nil)
