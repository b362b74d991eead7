package embed

import (
	"fmt"
	"log/slog"

	"github.com/medleycre/leaseindex/internal/errors"
	"github.com/medleycre/leaseindex/internal/token"
)

// Backend names accepted by NewEmbedder.
const (
	BackendOpenAI = "openai"
	BackendStatic = "static"
)

// Options selects and configures the embedding backend.
type Options struct {
	// Backend is "openai" or "static".
	Backend string

	// APIKey authenticates the OpenAI backend.
	APIKey string

	// Model overrides the default OpenAI model. Requires Dimensions.
	Model string

	// Dimensions is the model dimensionality when Model is set.
	Dimensions int

	// CacheSize sizes the LRU embedding cache. Zero means the default.
	CacheSize int
}

// NewEmbedder builds the configured embedder wrapped in the LRU cache.
func NewEmbedder(opts Options, tok token.Tokenizer) (Embedder, error) {
	var inner Embedder

	switch opts.Backend {
	case BackendOpenAI, "":
		var oaiOpts []OpenAIOption
		if opts.Model != "" {
			oaiOpts = append(oaiOpts, WithModel(opts.Model, opts.Dimensions))
		}
		e, err := NewOpenAIEmbedder(opts.APIKey, tok, oaiOpts...)
		if err != nil {
			return nil, err
		}
		inner = e
	case BackendStatic:
		inner = NewStaticEmbedder()
	default:
		return nil, errors.ConfigError(
			fmt.Sprintf("unknown embedding backend %q", opts.Backend), nil)
	}

	slog.Debug("embedder created",
		"backend", opts.Backend,
		"model", inner.ModelName(),
		"dimensions", inner.Dimensions())

	return NewCachedEmbedder(inner, opts.CacheSize), nil
}
