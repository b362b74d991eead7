package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medleycre/leaseindex/internal/errors"
	"github.com/medleycre/leaseindex/internal/token"
)

const (
	// DefaultOpenAIModel is the embedding model used unless configured.
	DefaultOpenAIModel = string(openai.SmallEmbedding3)

	// DefaultOpenAIDimensions is the dimensionality of text-embedding-3-small.
	DefaultOpenAIDimensions = 1536

	// maxInputTokens is the model's input window; longer text is
	// truncated rather than rejected.
	maxInputTokens = 8191
)

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
// Inputs exceeding the model window are truncated with the same tokenizer
// the chunker budgets with, so a chunk that fit its budget always fits here.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	tok        token.Tokenizer
	maxRetries int
}

// OpenAIOption customizes the embedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithModel overrides the embedding model.
func WithModel(model string, dimensions int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.model = model
		e.dimensions = dimensions
	}
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.maxRetries = n }
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI API.
func NewOpenAIEmbedder(apiKey string, tok token.Tokenizer, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.ConfigError("openai api key is required", nil)
	}
	if tok == nil {
		return nil, errors.ValidationError("tokenizer is required", nil)
	}

	e := &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      DefaultOpenAIModel,
		dimensions: DefaultOpenAIDimensions,
		tok:        tok,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting into API
// batches of at most MaxBatchSize.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = e.prepare(t)
	}

	results := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		vecs, err := e.embedBatch(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, vecs...)
	}
	return results, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(e.model),
	}

	var resp openai.EmbeddingResponse
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			slog.Warn("embedding request retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err = e.client.CreateEmbeddings(ctx, req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeEmbeddingBackend,
			fmt.Sprintf("embedding request failed after %d retries", e.maxRetries), err).
			WithSuggestion("check network connectivity and the OPENAI_API_KEY")
	}

	if len(resp.Data) != len(inputs) {
		return nil, errors.New(errors.ErrCodeEmbeddingBackend,
			fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(resp.Data)), nil)
	}

	vecs := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, errors.New(errors.ErrCodeEmbeddingBackend,
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// prepare truncates oversized input and maps empty input to a single space,
// which the API accepts where the empty string is rejected.
func (e *OpenAIEmbedder) prepare(text string) string {
	if strings.TrimSpace(text) == "" {
		return " "
	}
	if e.tok.Count(text) > maxInputTokens {
		text = e.tok.Truncate(text, maxInputTokens)
	}
	return text
}

// Dimensions returns the embedding dimensionality.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

var _ Embedder = (*OpenAIEmbedder)(nil)
