package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/document"
)

func vecChunk(id, tenant string, segType document.SegmentType) *chunk.Chunk {
	return &chunk.Chunk{
		ID:      id,
		DocID:   "lease-" + tenant,
		Content: "content for " + id,
		Metadata: chunk.Metadata{
			Tenant:      tenant,
			SegmentType: segType,
		},
	}
}

func TestHNSWAddAndSearch(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	ctx := context.Background()

	err := idx.Add(ctx,
		[]*chunk.Chunk{
			vecChunk("a", "Acme", document.SegmentArticle),
			vecChunk("b", "Acme", document.SegmentArticle),
			vecChunk("c", "Bravo", document.SegmentArticle),
		},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, "c", results[1].ChunkID)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestHNSWSearchWithFilter(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]*chunk.Chunk{
			vecChunk("a", "Acme", document.SegmentArticle),
			vecChunk("b", "Bravo", document.SegmentRentSchedule),
			vecChunk("c", "Bravo", document.SegmentArticle),
		},
		[][]float32{
			{1, 0, 0},
			{0.9, 0.1, 0},
			{0, 1, 0},
		}))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 3,
		map[string]string{"tenant": "Bravo"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ChunkID)
	assert.Equal(t, "c", results[1].ChunkID)

	results, err = idx.Search(ctx, []float32{1, 0, 0}, 3,
		map[string]string{"tenant": "Bravo", "segment_type": "rent_schedule"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)

	results, err = idx.Search(ctx, []float32{1, 0, 0}, 3,
		map[string]string{"tenant": "Nobody"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWAddIsIdempotentPerID(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	ctx := context.Background()

	ch := vecChunk("a", "Acme", document.SegmentArticle)
	require.NoError(t, idx.Add(ctx, []*chunk.Chunk{ch}, [][]float32{{1, 0, 0}}))
	require.NoError(t, idx.Add(ctx, []*chunk.Chunk{ch}, [][]float32{{0, 1, 0}}))

	assert.Equal(t, 1, idx.Count())

	// The replacement vector wins.
	results, err := idx.Search(ctx, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.InDelta(t, 0, results[0].Distance, 1e-5)
}

func TestHNSWDimensionMismatch(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	ctx := context.Background()

	err := idx.Add(ctx,
		[]*chunk.Chunk{vecChunk("a", "Acme", document.SegmentArticle)},
		[][]float32{{1, 0}})
	assert.Error(t, err)

	require.NoError(t, idx.Add(ctx,
		[]*chunk.Chunk{vecChunk("a", "Acme", document.SegmentArticle)},
		[][]float32{{1, 0, 0}}))

	_, err = idx.Search(ctx, []float32{1, 0}, 1, nil)
	assert.Error(t, err)
}

func TestHNSWDeleteAndClear(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]*chunk.Chunk{
			vecChunk("a", "Acme", document.SegmentArticle),
			vecChunk("b", "Acme", document.SegmentArticle),
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))

	require.NoError(t, idx.Delete(ctx, []string{"a", "missing"}))
	assert.Equal(t, 1, idx.Count())

	// Lazily deleted nodes never surface in results.
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)

	require.NoError(t, idx.Clear(ctx))
	assert.Zero(t, idx.Count())
	results, err = idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWGetAllOrdered(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 2})
	ctx := context.Background()

	a := vecChunk("a", "Acme", document.SegmentArticle)
	a.ChunkIndex = 1
	b := vecChunk("b", "Acme", document.SegmentArticle)
	b.ChunkIndex = 0
	require.NoError(t, idx.Add(ctx, []*chunk.Chunk{a, b}, [][]float32{{1, 0}, {0, 1}}))

	all := idx.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
}

func TestHNSWSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	require.NoError(t, idx.Add(ctx,
		[]*chunk.Chunk{
			vecChunk("a", "Acme", document.SegmentArticle),
			vecChunk("b", "Bravo", document.SegmentRentSchedule),
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, idx.Save(path))

	loaded := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Count())
	assert.Equal(t, 3, loaded.Dimensions())

	results, err := loaded.Search(ctx, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)

	ch := loaded.Get("b")
	require.NotNil(t, ch)
	assert.Equal(t, "Bravo", ch.Metadata.Tenant)
}
