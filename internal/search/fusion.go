package search

import (
	"sort"

	"github.com/medleycre/leaseindex/internal/store"
)

// fusedEntry accumulates a chunk's contributions from both sub-searches.
type fusedEntry struct {
	chunkID     string
	score       float64
	vectorRank  int
	lexicalRank int
	// order is the discovery position, lexical list first, used to break
	// exact score-and-rank ties deterministically.
	order int
}

// fuseRankings combines the two ranked lists with weighted reciprocal rank
// fusion: each list contributes weight / (rrf_k + rank) for every chunk it
// ranked, with 1-based ranks. A chunk absent from a list receives no
// contribution from it.
//
// Ties on fused score order by the better individual rank, then by lexical
// discovery order. The exact tie order is an implementation detail; only
// its stability across identical inputs is guaranteed.
func fuseRankings(lexical []*store.LexicalResult, vector []*store.VectorSearchResult, opts Options) []*fusedEntry {
	entries := make(map[string]*fusedEntry, len(lexical)+len(vector))
	order := 0

	get := func(chunkID string) *fusedEntry {
		e, ok := entries[chunkID]
		if !ok {
			e = &fusedEntry{chunkID: chunkID, order: order}
			order++
			entries[chunkID] = e
		}
		return e
	}

	for i, r := range lexical {
		rank := i + 1
		e := get(r.ChunkID)
		e.lexicalRank = rank
		e.score += opts.LexicalWeight / float64(opts.RRFK+rank)
	}
	for i, r := range vector {
		rank := i + 1
		e := get(r.ChunkID)
		e.vectorRank = rank
		e.score += opts.VectorWeight / float64(opts.RRFK+rank)
	}

	fused := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		fused = append(fused, e)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		bi, bj := fused[i].bestRank(), fused[j].bestRank()
		if bi != bj {
			return bi < bj
		}
		return fused[i].order < fused[j].order
	})
	return fused
}

// bestRank returns the chunk's best individual rank across both lists.
func (e *fusedEntry) bestRank() int {
	switch {
	case e.vectorRank == 0:
		return e.lexicalRank
	case e.lexicalRank == 0:
		return e.vectorRank
	case e.vectorRank < e.lexicalRank:
		return e.vectorRank
	default:
		return e.lexicalRank
	}
}
