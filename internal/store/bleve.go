package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/errors"
)

const (
	// LeaseTokenizerName is the registered name of the lease tokenizer.
	LeaseTokenizerName = "lease_tokenizer"

	// LeaseAnalyzerName is the registered name of the lease analyzer.
	LeaseAnalyzerName = "lease_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(LeaseTokenizerName, leaseTokenizerConstructor)
}

// BleveLexicalIndex implements LexicalIndex on an in-memory Bleve index.
// The index is populated exclusively through Rebuild, which constructs a
// fresh index from the full corpus and swaps it in atomically.
type BleveLexicalIndex struct {
	mu       sync.RWMutex
	index    bleve.Index
	docOrder map[string]int
	closed   bool
}

type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveLexicalIndex creates an empty lexical index. It serves no hits
// until the first Rebuild.
func NewBleveLexicalIndex() (*BleveLexicalIndex, error) {
	idx, err := newLeaseIndex()
	if err != nil {
		return nil, err
	}
	return &BleveLexicalIndex{
		index:    idx,
		docOrder: map[string]int{},
	}, nil
}

func newLeaseIndex() (bleve.Index, error) {
	m, err := createLeaseMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return idx, nil
}

func createLeaseMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(LeaseAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": LeaseTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("add custom analyzer: %w", err))
	}
	indexMapping.DefaultAnalyzer = LeaseAnalyzerName
	return indexMapping, nil
}

// Rebuild constructs a fresh index from the corpus and swaps it in. Building
// happens outside the lock so concurrent searches keep serving the previous
// corpus until the swap.
func (b *BleveLexicalIndex) Rebuild(ctx context.Context, chunks []*chunk.Chunk) error {
	fresh, err := newLeaseIndex()
	if err != nil {
		return err
	}

	order := make(map[string]int, len(chunks))
	batch := fresh.NewBatch()
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			_ = fresh.Close()
			return err
		}
		order[ch.ID] = i
		if err := batch.Index(ch.ID, bleveDocument{Content: ch.Content}); err != nil {
			_ = fresh.Close()
			return errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("index chunk %s: %w", ch.ID, err))
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}

	b.mu.Lock()
	old := b.index
	b.index = fresh
	b.docOrder = order
	b.closed = false
	b.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search returns up to k hits for the query, scored by BM25, best first.
// Only positive-score hits are returned. Equal scores order by corpus
// insertion position, so repeated queries over an unchanged corpus return
// identical rankings.
func (b *BleveLexicalIndex) Search(ctx context.Context, queryStr string, k int) ([]*LexicalResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.New(errors.ErrCodeIndexFailed, "lexical index is closed", nil)
	}
	if strings.TrimSpace(queryStr) == "" || k <= 0 {
		return []*LexicalResult{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")
	matchQuery.Analyzer = LeaseAnalyzerName

	req := bleve.NewSearchRequest(matchQuery)
	// Oversample so that equal-score hits at the cutoff are reordered
	// deterministically before truncation.
	req.Size = k * 2
	req.IncludeLocations = true

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("lexical search: %w", err))
	}

	hits := make([]*search.DocumentMatch, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if hit.Score > 0 {
			hits = append(hits, hit)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return b.docOrder[hits[i].ID] < b.docOrder[hits[j].ID]
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]*LexicalResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, &LexicalResult{
			ChunkID:      hit.ID,
			Score:        hit.Score,
			MatchedTerms: matchedTerms(hit),
		})
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (b *BleveLexicalIndex) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed || b.index == nil {
		return 0
	}
	n, _ := b.index.DocCount()
	return int(n)
}

// Close closes the index.
func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

func matchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field != "content" {
			continue
		}
		for term := range locations {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

var _ LexicalIndex = (*BleveLexicalIndex)(nil)

func leaseTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveLeaseTokenizer{}, nil
}

// bleveLeaseTokenizer adapts TokenizeLease to Bleve's analysis contract.
type bleveLeaseTokenizer struct{}

func (t *bleveLeaseTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeLease(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), token)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}
