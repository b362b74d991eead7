package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medleycre/leaseindex/internal/store"
)

func lexList(ids ...string) []*store.LexicalResult {
	out := make([]*store.LexicalResult, len(ids))
	for i, id := range ids {
		out[i] = &store.LexicalResult{ChunkID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func vecList(ids ...string) []*store.VectorSearchResult {
	out := make([]*store.VectorSearchResult, len(ids))
	for i, id := range ids {
		out[i] = &store.VectorSearchResult{ChunkID: id, Distance: float32(i)}
	}
	return out
}

func TestFuseRankingsContributions(t *testing.T) {
	opts := DefaultOptions()

	fused := fuseRankings(lexList("a"), vecList("a"), opts)
	require.Len(t, fused, 1)
	want := 0.4/61.0 + 0.6/61.0
	assert.InDelta(t, want, fused[0].score, 1e-12)
	assert.Equal(t, 1, fused[0].lexicalRank)
	assert.Equal(t, 1, fused[0].vectorRank)
}

func TestFuseRankingsMissingListContributesNothing(t *testing.T) {
	opts := DefaultOptions()

	fused := fuseRankings(lexList("a"), nil, opts)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.4/61.0, fused[0].score, 1e-12)
	assert.Zero(t, fused[0].vectorRank)
}

func TestFuseRankingsBothListsBeatOne(t *testing.T) {
	opts := DefaultOptions()

	// "both" is rank 2 in each list; "lexonly" is rank 1 lexically but
	// absent from the vector list. Appearing in both lists wins.
	fused := fuseRankings(lexList("lexonly", "both"), vecList("veconly", "both"), opts)
	require.Len(t, fused, 3)
	assert.Equal(t, "both", fused[0].chunkID)
}

func TestFuseRankingsMonotonicInRank(t *testing.T) {
	opts := DefaultOptions()

	worse := fuseRankings(nil, vecList("x", "target"), opts)
	better := fuseRankings(nil, vecList("target", "x"), opts)

	scoreOf := func(fused []*fusedEntry, id string) float64 {
		for _, e := range fused {
			if e.chunkID == id {
				return e.score
			}
		}
		t.Fatalf("chunk %s not fused", id)
		return 0
	}

	assert.Greater(t, scoreOf(better, "target"), scoreOf(worse, "target"),
		"improving a sub-search rank must never lower the fused score")
}

func TestFuseRankingsWeightsRespected(t *testing.T) {
	opts := DefaultOptions()

	// Same rank in exactly one list each: the vector-weighted chunk must
	// outscore the lexical-weighted one with default weights 0.6/0.4.
	fused := fuseRankings(lexList("lex"), vecList("vec"), opts)
	require.Len(t, fused, 2)
	assert.Equal(t, "vec", fused[0].chunkID)
	assert.Equal(t, "lex", fused[1].chunkID)
}

func TestFuseRankingsTieOrderDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.VectorWeight = 0.5
	opts.LexicalWeight = 0.5

	// Both chunks score identically at rank 1 of one list each. The tie
	// order must be identical on every run.
	var firstOrder []string
	for run := 0; run < 10; run++ {
		fused := fuseRankings(lexList("lex"), vecList("vec"), opts)
		ids := []string{fused[0].chunkID, fused[1].chunkID}
		if firstOrder == nil {
			firstOrder = ids
		} else {
			assert.Equal(t, firstOrder, ids)
		}
	}
}

func TestFuseRankingsTiePrefersBetterIndividualRank(t *testing.T) {
	opts := DefaultOptions()
	opts.VectorWeight = 1
	opts.LexicalWeight = 1
	opts.RRFK = 1

	// a: lexical rank 1 (score 1/2). b: vector ranks give 1/3 + ... pick
	// shapes with equal fused scores but different best ranks.
	// a: lex rank 1 -> 1/2. b: lex rank 3 -> 1/4, vec rank 3 -> 1/4.
	lex := lexList("a", "x", "b")
	vec := vecList("y", "z", "b")

	fused := fuseRankings(lex, vec, opts)
	require.GreaterOrEqual(t, len(fused), 2)

	var a, b *fusedEntry
	for _, e := range fused {
		switch e.chunkID {
		case "a":
			a = e
		case "b":
			b = e
		}
	}
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.InDelta(t, a.score, b.score, 1e-12)

	// Equal scores: "a" holds the better individual rank (1 vs 3).
	posOf := func(id string) int {
		for i, e := range fused {
			if e.chunkID == id {
				return i
			}
		}
		return -1
	}
	assert.Less(t, posOf("a"), posOf("b"))
}
