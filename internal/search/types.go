// Package search implements hybrid retrieval: parallel lexical and vector
// sub-searches fused with reciprocal rank fusion.
package search

import (
	"fmt"
	"time"

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/errors"
)

// Fusion and retrieval defaults.
const (
	DefaultVectorK       = 20
	DefaultLexicalK      = 20
	DefaultFinalK        = 10
	DefaultRRFK          = 60
	DefaultVectorWeight  = 0.6
	DefaultLexicalWeight = 0.4
)

// Options configures one hybrid search.
type Options struct {
	// VectorK is how many candidates the vector sub-search retrieves.
	VectorK int

	// LexicalK is how many candidates the lexical sub-search retrieves.
	LexicalK int

	// FinalK is how many fused results are returned.
	FinalK int

	// RRFK is the rank-smoothing constant in the RRF formula.
	RRFK int

	// VectorWeight scales vector rank contributions.
	VectorWeight float64

	// LexicalWeight scales lexical rank contributions.
	LexicalWeight float64

	// Filter restricts results to chunks whose metadata matches every
	// key-value pair. Applied to the vector sub-search natively and to
	// fused results as a post-filter.
	Filter map[string]string
}

// DefaultOptions returns the standard hybrid search configuration.
func DefaultOptions() Options {
	return Options{
		VectorK:       DefaultVectorK,
		LexicalK:      DefaultLexicalK,
		FinalK:        DefaultFinalK,
		RRFK:          DefaultRRFK,
		VectorWeight:  DefaultVectorWeight,
		LexicalWeight: DefaultLexicalWeight,
	}
}

// Validate rejects unusable retrieval parameters.
func (o Options) Validate() error {
	if o.VectorK <= 0 || o.LexicalK <= 0 || o.FinalK <= 0 {
		return errors.ValidationError(
			fmt.Sprintf("retrieval depths must be positive: vector_k=%d lexical_k=%d final_k=%d",
				o.VectorK, o.LexicalK, o.FinalK), nil)
	}
	if o.RRFK <= 0 {
		return errors.ValidationError(fmt.Sprintf("rrf_k must be positive, got %d", o.RRFK), nil)
	}
	if o.VectorWeight < 0 || o.LexicalWeight < 0 {
		return errors.ValidationError("fusion weights must be non-negative", nil)
	}
	if o.VectorWeight == 0 && o.LexicalWeight == 0 {
		return errors.ValidationError("at least one fusion weight must be positive", nil)
	}
	return nil
}

// ScoredResult is one fused search hit.
type ScoredResult struct {
	// ChunkID identifies the chunk.
	ChunkID string `json:"chunk_id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Metadata is the chunk metadata, for citation and filtering.
	Metadata chunk.Metadata `json:"metadata"`

	// FusedScore is the combined RRF score.
	FusedScore float64 `json:"fused_score"`

	// VectorRank is the 1-based rank in the vector sub-search, 0 when
	// the chunk was not retrieved by it.
	VectorRank int `json:"vector_rank"`

	// LexicalRank is the 1-based rank in the lexical sub-search, 0 when
	// the chunk was not retrieved by it.
	LexicalRank int `json:"lexical_rank"`
}

// Response is the outcome of one hybrid search.
type Response struct {
	// Results are the fused hits, best first, at most FinalK of them.
	Results []*ScoredResult `json:"results"`

	// Degraded reports that one sub-index failed and results come from
	// the surviving index alone.
	Degraded bool `json:"degraded"`

	// Took is the end-to-end search duration.
	Took time.Duration `json:"took"`
}
