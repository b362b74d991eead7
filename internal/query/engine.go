// Package query coordinates the full retrieval pipeline: ingest (chunk,
// embed, index, persist) and search (hybrid, vector-only, lexical-only).
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/document"
	"github.com/medleycre/leaseindex/internal/embed"
	"github.com/medleycre/leaseindex/internal/errors"
	"github.com/medleycre/leaseindex/internal/search"
	"github.com/medleycre/leaseindex/internal/store"
)

// Engine owns the indices and runs every corpus operation. Writes are
// serialized by the cross-process ingest lock; reads take no lock and rely
// on the indices' internal synchronization.
type Engine struct {
	chunker    *chunk.Chunker
	embedder   embed.Embedder
	lexical    store.LexicalIndex
	vector     store.VectorIndex
	chunkStore store.ChunkStore
	ranker     *search.HybridRanker
	lock       *store.IngestLock
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Chunker    *chunk.Chunker
	Embedder   embed.Embedder
	Lexical    store.LexicalIndex
	Vector     store.VectorIndex
	ChunkStore store.ChunkStore
	Lock       *store.IngestLock
}

// IngestStats reports what one ingest run did.
type IngestStats struct {
	Documents       int           `json:"documents"`
	Chunks          int           `json:"chunks"`
	SkippedSections int           `json:"skipped_sections"`
	Took            time.Duration `json:"took"`
}

// NewEngine builds an engine over the given dependencies.
func NewEngine(deps Deps) *Engine {
	return &Engine{
		chunker:    deps.Chunker,
		embedder:   deps.Embedder,
		lexical:    deps.Lexical,
		vector:     deps.Vector,
		chunkStore: deps.ChunkStore,
		ranker:     search.NewHybridRanker(deps.Lexical, deps.Vector, deps.Embedder),
		lock:       deps.Lock,
	}
}

// Ingest chunks, embeds, persists, and indexes the given documents, then
// rebuilds the lexical index over the full corpus.
func (e *Engine) Ingest(ctx context.Context, docs []*document.ParsedDocument) (*IngestStats, error) {
	start := time.Now()

	if err := e.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer e.releaseLock()

	chunks, skipped := e.chunker.ChunkAll(docs)
	slog.Info("documents chunked",
		"documents", len(docs),
		"chunks", len(chunks),
		"skipped_sections", skipped)

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Content
		}
		embeddings, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, errors.New(errors.ErrCodeEmbeddingFailed, "embedding batch failed", err)
		}

		if err := e.chunkStore.SaveChunks(ctx, chunks, embeddings); err != nil {
			return nil, err
		}
		if err := e.vector.Add(ctx, chunks, embeddings); err != nil {
			return nil, err
		}
	}

	// The lexical index rebuilds from the full corpus, not just this
	// batch, so ingest stays additive.
	if err := e.lexical.Rebuild(ctx, e.vector.GetAll()); err != nil {
		return nil, err
	}

	stats := &IngestStats{
		Documents:       len(docs),
		Chunks:          len(chunks),
		SkippedSections: skipped,
		Took:            time.Since(start),
	}
	slog.Info("ingest complete",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"took", stats.Took)
	return stats, nil
}

// ReingestDocument replaces a document's chunks then re-ingests it.
func (e *Engine) ReingestDocument(ctx context.Context, doc *document.ParsedDocument) (*IngestStats, error) {
	if doc == nil || !doc.Valid() {
		return nil, errors.ValidationError("document is missing doc_id", nil)
	}
	if err := e.deleteDoc(ctx, doc.DocID); err != nil {
		return nil, err
	}
	return e.Ingest(ctx, []*document.ParsedDocument{doc})
}

// DeleteDocument removes a document's chunks from the store and both
// indices.
func (e *Engine) DeleteDocument(ctx context.Context, docID string) error {
	if err := e.deleteDoc(ctx, docID); err != nil {
		return err
	}

	if err := e.acquireLock(ctx); err != nil {
		return err
	}
	defer e.releaseLock()
	return e.lexical.Rebuild(ctx, e.vector.GetAll())
}

func (e *Engine) deleteDoc(ctx context.Context, docID string) error {
	if err := e.acquireLock(ctx); err != nil {
		return err
	}
	defer e.releaseLock()

	var stale []string
	for _, ch := range e.vector.GetAll() {
		if ch.DocID == docID {
			stale = append(stale, ch.ID)
		}
	}
	if err := e.vector.Delete(ctx, stale); err != nil {
		return err
	}
	return e.chunkStore.DeleteByDoc(ctx, docID)
}

// WarmStart rebuilds both indices from the persisted chunk store without
// re-embedding anything.
func (e *Engine) WarmStart(ctx context.Context) error {
	chunks, embeddings, err := e.chunkStore.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	if err := e.vector.Add(ctx, chunks, embeddings); err != nil {
		return err
	}
	if err := e.lexical.Rebuild(ctx, chunks); err != nil {
		return err
	}

	slog.Info("warm start complete", "chunks", len(chunks))
	return nil
}

// Search runs a hybrid search over the corpus. An empty corpus yields an
// empty result list, not an error.
func (e *Engine) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	return e.ranker.Search(ctx, query, opts)
}

// SearchVector runs the vector sub-search alone.
func (e *Engine) SearchVector(ctx context.Context, query string, k int, filter map[string]string) ([]*search.ScoredResult, error) {
	return e.ranker.SearchVector(ctx, query, k, filter)
}

// SearchLexical runs the lexical sub-search alone.
func (e *Engine) SearchLexical(ctx context.Context, query string, k int, filter map[string]string) ([]*search.ScoredResult, error) {
	return e.ranker.SearchLexical(ctx, query, k, filter)
}

// CompareTenants runs the same query filtered to each tenant, returning the
// per-tenant result lists keyed by tenant name.
func (e *Engine) CompareTenants(ctx context.Context, query string, tenants []string, opts search.Options) (map[string][]*search.ScoredResult, error) {
	if len(tenants) == 0 {
		var err error
		tenants, err = e.Tenants(ctx)
		if err != nil {
			return nil, err
		}
	}

	results := make(map[string][]*search.ScoredResult, len(tenants))
	for _, tenant := range tenants {
		tenantOpts := opts
		tenantOpts.Filter = map[string]string{chunk.FilterKeyTenant: tenant}
		for k, v := range opts.Filter {
			if k != chunk.FilterKeyTenant {
				tenantOpts.Filter[k] = v
			}
		}

		resp, err := e.Search(ctx, query, tenantOpts)
		if err != nil {
			return nil, err
		}
		results[tenant] = resp.Results
	}
	return results, nil
}

// Tenants lists the distinct tenants in the corpus.
func (e *Engine) Tenants(ctx context.Context) ([]string, error) {
	return e.chunkStore.Tenants(ctx)
}

// Clear removes every chunk from the store and both indices.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.acquireLock(ctx); err != nil {
		return err
	}
	defer e.releaseLock()

	if err := e.chunkStore.Clear(ctx); err != nil {
		return err
	}
	if err := e.vector.Clear(ctx); err != nil {
		return err
	}
	return e.lexical.Rebuild(ctx, nil)
}

// Stats summarizes the corpus and index state.
func (e *Engine) Stats(ctx context.Context) (*store.IndexStats, error) {
	count, err := e.chunkStore.Count(ctx)
	if err != nil {
		return nil, err
	}
	tenants, err := e.chunkStore.Tenants(ctx)
	if err != nil {
		return nil, err
	}

	stats := &store.IndexStats{
		ChunkCount:   count,
		VectorCount:  e.vector.Count(),
		LexicalCount: e.lexical.Count(),
		Tenants:      tenants,
		Dimensions:   e.embedder.Dimensions(),
	}
	return stats, nil
}

func (e *Engine) acquireLock(ctx context.Context) error {
	if e.lock == nil {
		return nil
	}
	return e.lock.Acquire(ctx)
}

func (e *Engine) releaseLock() {
	if e.lock == nil {
		return
	}
	if err := e.lock.Release(); err != nil {
		slog.Warn("failed to release ingest lock", "error", err)
	}
}
