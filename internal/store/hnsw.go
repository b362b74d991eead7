package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/errors"
)

// HNSWConfig configures the local vector index.
type HNSWConfig struct {
	// Dimensions is the embedding dimensionality. Zero means adopt the
	// dimensionality of the first added vector.
	Dimensions int

	// M is the HNSW connectivity parameter.
	M int

	// EfSearch is the HNSW search expansion factor.
	EfSearch int
}

// HNSWIndex implements VectorIndex on coder/hnsw. It is the bundled local
// backend; remote stores plug in behind the same interface.
//
// The graph keys are internal uint64s; idMap/keyMap translate chunk IDs.
// Updates and deletes are lazy: the node stays in the graph but loses its
// key mapping, so it can never surface in results.
type HNSWIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	cfg     HNSWConfig
	chunks  map[string]*chunk.Chunk
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	dims    int
}

// hnswState is the gob-persisted companion to the exported graph.
type hnswState struct {
	Chunks  map[string]*chunk.Chunk
	IDMap   map[string]uint64
	NextKey uint64
	Dims    int
}

// NewHNSWIndex creates an empty vector index.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:  graph,
		cfg:    cfg,
		chunks: make(map[string]*chunk.Chunk),
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		dims:   cfg.Dimensions,
	}
}

// Add inserts chunks with their embeddings. Re-adding an existing chunk ID
// replaces its vector and metadata.
func (s *HNSWIndex) Add(ctx context.Context, chunks []*chunk.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings)), nil)
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, vec := range embeddings {
		if s.dims == 0 {
			s.dims = len(vec)
		}
		if len(vec) != s.dims {
			return errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected %d dimensions, got %d", s.dims, len(vec)), nil)
		}
	}

	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		if existingKey, exists := s.idMap[ch.ID]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, ch.ID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[ch.ID] = key
		s.keyMap[key] = ch.ID
		s.chunks[ch.ID] = ch
	}
	return nil
}

// Search returns up to k nearest chunks, closest first. A non-nil filter
// restricts results to chunks whose metadata matches every key-value pair;
// filtering oversamples the graph search so filtered queries still fill k
// where matching chunks exist.
func (s *HNSWIndex) Search(ctx context.Context, query []float32, k int, filter map[string]string) ([]*VectorSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || s.graph.Len() == 0 {
		return []*VectorSearchResult{}, nil
	}
	if s.dims != 0 && len(query) != s.dims {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("expected %d dimensions, got %d", s.dims, len(query)), nil)
	}

	limit := k
	if len(filter) > 0 {
		limit = k * 4
	}
	// Lazy-deleted nodes consume result slots, widen for them too.
	limit += s.graph.Len() - len(s.idMap)
	if limit > s.graph.Len() {
		limit = s.graph.Len()
	}

	results := s.collect(query, limit, k, filter)

	// A filtered search can come up short when matches are sparse; retry
	// once over the whole graph before giving up.
	if len(results) < k && limit < s.graph.Len() {
		results = s.collect(query, s.graph.Len(), k, filter)
	}
	return results, nil
}

func (s *HNSWIndex) collect(query []float32, limit, k int, filter map[string]string) []*VectorSearchResult {
	nodes := s.graph.Search(query, limit)

	results := make([]*VectorSearchResult, 0, k)
	for _, node := range nodes {
		id, live := s.keyMap[node.Key]
		if !live {
			continue
		}
		if len(filter) > 0 {
			ch := s.chunks[id]
			if ch == nil || !ch.Metadata.Match(filter) {
				continue
			}
		}
		results = append(results, &VectorSearchResult{
			ChunkID:  id,
			Distance: s.graph.Distance(query, node.Value),
		})
		if len(results) == k {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results
}

// Get returns the stored chunk for an ID, or nil.
func (s *HNSWIndex) Get(id string) *chunk.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks[id]
}

// GetAll returns every stored chunk, ordered by document then chunk index.
func (s *HNSWIndex) GetAll() []*chunk.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*chunk.Chunk, 0, len(s.chunks))
	for _, ch := range s.chunks {
		all = append(all, ch)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].DocID != all[j].DocID {
			return all[i].DocID < all[j].DocID
		}
		return all[i].ChunkIndex < all[j].ChunkIndex
	})
	return all
}

// Delete removes chunks by ID using lazy deletion.
func (s *HNSWIndex) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
			delete(s.chunks, id)
		}
	}
	return nil
}

// Count returns the number of live vectors.
func (s *HNSWIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// Dimensions returns the index dimensionality, zero when empty and unpinned.
func (s *HNSWIndex) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Clear removes all vectors by resetting the graph.
func (s *HNSWIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = s.cfg.M
	graph.EfSearch = s.cfg.EfSearch
	graph.Ml = 0.25

	s.graph = graph
	s.chunks = make(map[string]*chunk.Chunk)
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.nextKey = 0
	s.dims = s.cfg.Dimensions
	return nil
}

// Save persists the graph and its ID mappings to disk atomically
// (temp file plus rename).
func (s *HNSWIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	if err := s.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("export graph: %w", err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}

	return s.saveState(path + ".meta")
}

func (s *HNSWIndex) saveState(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}

	state := hnswState{
		Chunks:  s.chunks,
		IDMap:   s.idMap,
		NextKey: s.nextKey,
		Dims:    s.dims,
	}
	if err := gob.NewEncoder(f).Encode(state); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("encode state: %w", err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return nil
}

// Load restores a graph persisted by Save.
func (s *HNSWIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCorruptIndex, err)
	}
	defer f.Close()

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = s.cfg.M
	graph.EfSearch = s.cfg.EfSearch
	graph.Ml = 0.25
	if err := graph.Import(bufio.NewReader(f)); err != nil {
		return errors.Wrap(errors.ErrCodeCorruptIndex, fmt.Errorf("import graph: %w", err))
	}

	mf, err := os.Open(path + ".meta")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCorruptIndex, err)
	}
	defer mf.Close()

	var state hnswState
	if err := gob.NewDecoder(mf).Decode(&state); err != nil {
		return errors.Wrap(errors.ErrCodeCorruptIndex, fmt.Errorf("decode state: %w", err))
	}

	keyMap := make(map[uint64]string, len(state.IDMap))
	for id, key := range state.IDMap {
		keyMap[key] = id
	}

	s.graph = graph
	s.chunks = state.Chunks
	s.idMap = state.IDMap
	s.keyMap = keyMap
	s.nextKey = state.NextKey
	s.dims = state.Dims
	if s.chunks == nil {
		s.chunks = make(map[string]*chunk.Chunk)
	}
	return nil
}

var _ VectorIndex = (*HNSWIndex)(nil)
