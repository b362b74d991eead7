// Package store provides the index and persistence backends: a Bleve-backed
// lexical index, an HNSW-backed vector index, and a SQLite chunk store that
// serves as the source of truth for warm starts.
package store

import (
	"context"

	"github.com/medleycre/leaseindex/internal/chunk"
)

// LexicalResult is one hit from the lexical index.
type LexicalResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// Score is the relevance score. Always positive; zero-score matches
	// are not returned.
	Score float64

	// MatchedTerms are the analyzed query terms that matched, for
	// debugging and explain output.
	MatchedTerms []string
}

// VectorSearchResult is one hit from the vector index, ordered by ascending
// distance.
type VectorSearchResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// Distance is the raw distance in the index's metric (smaller is
	// closer).
	Distance float32
}

// LexicalIndex is the keyword retrieval contract. Implementations must
// analyze queries with the same tokenizer used at index time, and must order
// equal-score hits by corpus insertion order.
type LexicalIndex interface {
	// Rebuild replaces the entire index contents with the given corpus.
	// The swap is atomic with respect to concurrent Search calls: a
	// search observes either the old corpus or the new one, never a mix.
	Rebuild(ctx context.Context, chunks []*chunk.Chunk) error

	// Search returns up to k hits for the query, best first.
	Search(ctx context.Context, query string, k int) ([]*LexicalResult, error)

	// Count returns the number of indexed chunks.
	Count() int

	// Close releases index resources.
	Close() error
}

// VectorIndex is the nearest-neighbor retrieval contract. Embedding
// generation happens outside the index; callers pass precomputed vectors.
type VectorIndex interface {
	// Add inserts chunks with their embeddings. Re-adding an existing
	// chunk ID replaces its vector and metadata (idempotent upsert).
	Add(ctx context.Context, chunks []*chunk.Chunk, embeddings [][]float32) error

	// Search returns up to k nearest chunks, closest first. A non-nil
	// filter restricts results to chunks whose metadata matches every
	// key-value pair.
	Search(ctx context.Context, query []float32, k int, filter map[string]string) ([]*VectorSearchResult, error)

	// Get returns the stored chunk for an ID, or nil when absent.
	Get(id string) *chunk.Chunk

	// GetAll returns every stored chunk.
	GetAll() []*chunk.Chunk

	// Delete removes chunks by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of live vectors.
	Count() int

	// Clear removes all vectors.
	Clear(ctx context.Context) error
}

// ChunkStore persists chunks and their embeddings so that warm starts can
// rebuild both indices without re-embedding.
type ChunkStore interface {
	// SaveChunks upserts chunks with their embeddings.
	SaveChunks(ctx context.Context, chunks []*chunk.Chunk, embeddings [][]float32) error

	// LoadAll returns every persisted chunk and its embedding, in
	// chunk insertion order.
	LoadAll(ctx context.Context) ([]*chunk.Chunk, [][]float32, error)

	// DeleteByDoc removes all chunks belonging to a document.
	DeleteByDoc(ctx context.Context, docID string) error

	// Clear removes everything.
	Clear(ctx context.Context) error

	// Tenants returns the distinct tenant names in the corpus, sorted.
	Tenants(ctx context.Context) ([]string, error)

	// Count returns the number of persisted chunks.
	Count(ctx context.Context) (int, error)

	// Close closes the underlying database.
	Close() error
}

// IndexStats summarizes the state of the indices for the stats command.
type IndexStats struct {
	ChunkCount   int      `json:"chunk_count"`
	VectorCount  int      `json:"vector_count"`
	LexicalCount int      `json:"lexical_count"`
	Tenants      []string `json:"tenants"`
	Dimensions   int      `json:"dimensions"`
}
