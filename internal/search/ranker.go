package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medleycre/leaseindex/internal/embed"
	"github.com/medleycre/leaseindex/internal/errors"
	"github.com/medleycre/leaseindex/internal/store"
)

// HybridRanker runs the two sub-searches in parallel and fuses their
// rankings. A single failing sub-index degrades the search instead of
// failing it; the search fails only when both sub-indices fail or the
// context is cancelled.
type HybridRanker struct {
	lexical  store.LexicalIndex
	vector   store.VectorIndex
	embedder embed.Embedder
}

// NewHybridRanker builds a ranker over the given indices.
func NewHybridRanker(lexical store.LexicalIndex, vector store.VectorIndex, embedder embed.Embedder) *HybridRanker {
	return &HybridRanker{
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
	}
}

// Search runs a hybrid search for the query.
func (h *HybridRanker) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		lexResults []*store.LexicalResult
		vecResults []*store.VectorSearchResult
		lexErr     error
		vecErr     error
	)

	// Sub-search failures are captured, not returned, so one failing
	// index never cancels its sibling through the group context.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexResults, lexErr = h.lexical.Search(gctx, query, opts.LexicalK)
		return nil
	})
	g.Go(func() error {
		vecResults, vecErr = h.searchVector(gctx, query, opts.VectorK, opts.Filter)
		return nil
	})
	_ = g.Wait()

	// A cancelled query returns no result at all, not a partial one.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if lexErr != nil && vecErr != nil {
		return nil, errors.IndexUnavailableError(vecErr).
			WithDetail("lexical_error", lexErr.Error()).
			WithDetail("vector_error", vecErr.Error())
	}

	degraded := false
	if lexErr != nil {
		slog.Warn("lexical sub-search failed, serving vector results only", "error", lexErr)
		degraded = true
		lexResults = nil
	}
	if vecErr != nil {
		slog.Warn("vector sub-search failed, serving lexical results only", "error", vecErr)
		degraded = true
		vecResults = nil
	}

	fused := fuseRankings(lexResults, vecResults, opts)
	results := h.hydrate(fused, opts)

	return &Response{
		Results:  results,
		Degraded: degraded,
		Took:     time.Since(start),
	}, nil
}

// SearchVector runs the vector sub-search alone.
func (h *HybridRanker) SearchVector(ctx context.Context, query string, k int, filter map[string]string) ([]*ScoredResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	hits, err := h.searchVector(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}

	results := make([]*ScoredResult, 0, len(hits))
	for i, hit := range hits {
		r := &ScoredResult{
			ChunkID:    hit.ChunkID,
			VectorRank: i + 1,
			FusedScore: 1 / float64(DefaultRRFK+i+1),
		}
		if ch := h.vector.Get(hit.ChunkID); ch != nil {
			r.Content = ch.Content
			r.Metadata = ch.Metadata
		}
		results = append(results, r)
	}
	return results, nil
}

// SearchLexical runs the lexical sub-search alone.
func (h *HybridRanker) SearchLexical(ctx context.Context, query string, k int, filter map[string]string) ([]*ScoredResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	hits, err := h.lexical.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	results := make([]*ScoredResult, 0, len(hits))
	for i, hit := range hits {
		ch := h.vector.Get(hit.ChunkID)
		if len(filter) > 0 && (ch == nil || !ch.Metadata.Match(filter)) {
			continue
		}
		r := &ScoredResult{
			ChunkID:     hit.ChunkID,
			LexicalRank: i + 1,
			FusedScore:  hit.Score,
		}
		if ch != nil {
			r.Content = ch.Content
			r.Metadata = ch.Metadata
		}
		results = append(results, r)
	}
	return results, nil
}

func (h *HybridRanker) searchVector(ctx context.Context, query string, k int, filter map[string]string) ([]*store.VectorSearchResult, error) {
	emb, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return h.vector.Search(ctx, emb, k, filter)
}

// hydrate converts fused entries to scored results, applies the metadata
// post-filter, and truncates to FinalK. Lexical hits carry no metadata of
// their own, so filtering happens here against the stored chunk.
func (h *HybridRanker) hydrate(fused []*fusedEntry, opts Options) []*ScoredResult {
	results := make([]*ScoredResult, 0, opts.FinalK)
	for _, e := range fused {
		ch := h.vector.Get(e.chunkID)
		if len(opts.Filter) > 0 && (ch == nil || !ch.Metadata.Match(opts.Filter)) {
			continue
		}
		r := &ScoredResult{
			ChunkID:     e.chunkID,
			FusedScore:  e.score,
			VectorRank:  e.vectorRank,
			LexicalRank: e.lexicalRank,
		}
		if ch != nil {
			r.Content = ch.Content
			r.Metadata = ch.Metadata
		}
		results = append(results, r)
		if len(results) == opts.FinalK {
			break
		}
	}
	return results
}
