package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medleycre/leaseindex/internal/document"
	"github.com/medleycre/leaseindex/internal/token"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func testDoc() *document.ParsedDocument {
	return &document.ParsedDocument{
		DocID:      "lease-acme",
		SourceFile: "acme_lease.docx",
		TenantName: "Acme Corp",
		Sections: map[string]string{
			"Article IV: Rent": "Base rent is due monthly.\n\nLate payments accrue interest.",
		},
		Tables: []document.Table{
			{
				Headers: []string{"Lease Year", "Annual Rent", "Monthly Rent"},
				Rows: [][]string{
					{"1", "$120,000", "$10,000"},
					{"2", "$126,000", "$10,500"},
				},
			},
		},
		DataSheet: map[string]string{
			"tenant":      "Acme Corp",
			"square_feet": "12,000",
			"base_rent":   "$10,000/mo",
		},
	}
}

func newTestChunker(t *testing.T, opts Options) *Chunker {
	t.Helper()
	c, err := NewChunker(token.NewWordTokenizer(), opts)
	require.NoError(t, err)
	return c
}

// docOpts keeps the default budgets but lowers the minimum so the compact
// fixture sections survive chunking.
func docOpts() Options {
	return Options{ChunkSize: 1000, ChunkOverlap: 100, MinChunkSize: 5}
}

func TestNewChunkerRejectsBadOptions(t *testing.T) {
	tok := token.NewWordTokenizer()

	cases := []struct {
		name string
		opts Options
	}{
		{"zero chunk size", Options{ChunkSize: 0, ChunkOverlap: 10, MinChunkSize: 10}},
		{"negative overlap", Options{ChunkSize: 100, ChunkOverlap: -1, MinChunkSize: 10}},
		{"overlap equals size", Options{ChunkSize: 100, ChunkOverlap: 100, MinChunkSize: 10}},
		{"min exceeds size", Options{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 200}},
		{"zero min", Options{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tok, tc.opts)
			assert.Error(t, err)
		})
	}

	_, err := NewChunker(nil, DefaultOptions())
	assert.Error(t, err)
}

func TestChunkDocumentDeterministic(t *testing.T) {
	c := newTestChunker(t, docOpts())
	doc := testDoc()

	first, skipped, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.NotEmpty(t, first)

	second, _, err := c.ChunkDocument(testDoc())
	require.NoError(t, err)
	require.Len(t, second, len(first))

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].ChunkIndex, second[i].ChunkIndex)
	}
}

func TestChunkDocumentEmissionOrder(t *testing.T) {
	c := newTestChunker(t, docOpts())
	chunks, _, err := c.ChunkDocument(testDoc())
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, document.SegmentDataSheet, chunks[0].SegmentType)
	assert.Equal(t, document.SegmentRentSchedule, chunks[1].SegmentType)
	assert.Equal(t, document.SegmentArticle, chunks[2].SegmentType)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.NotEmpty(t, ch.ID)
		assert.NotEmpty(t, ch.Content)
		assert.Equal(t, "Acme Corp", ch.Metadata.Tenant)
	}
}

func TestDataSheetChunkRendering(t *testing.T) {
	c := newTestChunker(t, docOpts())
	chunks, _, err := c.ChunkDocument(testDoc())
	require.NoError(t, err)

	ds := chunks[0]
	assert.True(t, strings.HasPrefix(ds.Content, "DATA SHEET SUMMARY\n\n"))
	// Keys render title-cased and sorted.
	assert.Contains(t, ds.Content, "Base Rent: $10,000/mo")
	assert.Contains(t, ds.Content, "Square Feet: 12,000")
	assert.Less(t,
		strings.Index(ds.Content, "Base Rent"),
		strings.Index(ds.Content, "Square Feet"))
	assert.Equal(t, "Data Sheet Summary", ds.SegmentName)
}

func TestRentScheduleChunkRendering(t *testing.T) {
	c := newTestChunker(t, docOpts())
	chunks, _, err := c.ChunkDocument(testDoc())
	require.NoError(t, err)

	rs := chunks[1]
	assert.True(t, strings.HasPrefix(rs.Content, "RENT SCHEDULE for Acme Corp\n\n"))
	assert.Contains(t, rs.Content, "Lease Year | Annual Rent | Monthly Rent")
	assert.Contains(t, rs.Content, strings.Repeat("-", 50))
	assert.Contains(t, rs.Content, "1 | $120,000 | $10,000")
	assert.Equal(t, "Rent Schedule", rs.SegmentName)
}

func TestOversizedTableKeptWhole(t *testing.T) {
	c := newTestChunker(t, Options{ChunkSize: 20, ChunkOverlap: 5, MinChunkSize: 2})

	rows := make([][]string, 30)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%d", i+1), "$120,000", "$10,000"}
	}
	doc := &document.ParsedDocument{
		DocID:      "lease-big",
		TenantName: "Big Tenant",
		Tables: []document.Table{
			{Headers: []string{"Lease Year", "Annual Rent", "Monthly Rent"}, Rows: rows},
		},
	}

	chunks, _, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Greater(t, chunks[0].TokenCount, c.opts.ChunkSize)
}

func TestSectionSplitWithOverlap(t *testing.T) {
	// 24 paragraphs of 100 words: 2400 tokens against a 1000-token budget
	// with 100-token overlap packs into 3 chunks.
	paras := make([]string, 24)
	for i := range paras {
		paras[i] = words(100)
	}
	doc := &document.ParsedDocument{
		DocID:      "lease-long",
		TenantName: "Long Tenant",
		Sections:   map[string]string{"Article I: Premises": strings.Join(paras, "\n\n")},
	}

	c := newTestChunker(t, DefaultOptions())
	chunks, skipped, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, chunks, 3)

	tok := token.NewWordTokenizer()
	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.TokenCount, DefaultChunkSize,
			"chunk %d exceeds token budget", i)
		assert.Equal(t, fmt.Sprintf("Article I: Premises (Part %d)", i+1), ch.SegmentName)
		assert.Equal(t, i+1, ch.Part)
	}

	// Each split boundary carries the closed chunk's tail into the next.
	for i := 1; i < len(chunks); i++ {
		tail := tok.Tail(chunks[i-1].Content, DefaultChunkOverlap)
		assert.True(t, strings.HasPrefix(chunks[i].Content, tail),
			"chunk %d does not start with the previous chunk's tail", i)
	}
}

func TestUnsplitSectionHasNoPartSuffix(t *testing.T) {
	c := newTestChunker(t, docOpts())
	doc := &document.ParsedDocument{
		DocID:    "lease-short",
		Sections: map[string]string{"Article II: Term": words(50)},
	}
	chunks, _, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Article II: Term", chunks[0].SegmentName)
	assert.Zero(t, chunks[0].Part)
}

func TestShortFinalPartialDropped(t *testing.T) {
	// Two 90-word paragraphs then a 10-word straggler against a 100-token
	// budget: the straggler plus overlap stays under min_chunk_size and
	// is dropped.
	text := words(90) + "\n\n" + words(90) + "\n\n" + words(10)
	doc := &document.ParsedDocument{
		DocID:    "lease-tail",
		Sections: map[string]string{"Article III: Use": text},
	}

	c := newTestChunker(t, Options{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 50})
	chunks, _, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, ch := range chunks {
		assert.GreaterOrEqual(t, ch.TokenCount, 50)
	}
}

func TestSectionBelowMinSizeDropped(t *testing.T) {
	c := newTestChunker(t, DefaultOptions())
	doc := &document.ParsedDocument{
		DocID:    "lease-thin",
		Sections: map[string]string{"Article VI: Signage": words(20)},
	}
	chunks, skipped, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	assert.Zero(t, skipped, "a dropped short section is not a failure")
	assert.Empty(t, chunks)
}

func TestEmptySectionProducesNoChunks(t *testing.T) {
	c := newTestChunker(t, DefaultOptions())
	doc := &document.ParsedDocument{
		DocID:    "lease-empty",
		Sections: map[string]string{"Article V: Reserved": "\n\n   \n\n"},
	}
	chunks, skipped, err := c.ChunkDocument(doc)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Empty(t, chunks)
}

func TestChunkDocumentRejectsMissingDocID(t *testing.T) {
	c := newTestChunker(t, DefaultOptions())
	_, _, err := c.ChunkDocument(&document.ParsedDocument{})
	assert.Error(t, err)

	_, _, err = c.ChunkDocument(nil)
	assert.Error(t, err)
}

func TestMetadataMatchAndFlatten(t *testing.T) {
	m := Metadata{
		Tenant:      "Acme Corp",
		SegmentType: document.SegmentRentSchedule,
		SegmentName: "Rent Schedule",
		SourceFile:  "acme_lease.docx",
		Extra:       map[string]string{"property_id": "P-42"},
	}

	assert.True(t, m.Match(nil))
	assert.True(t, m.Match(map[string]string{"tenant": "Acme Corp"}))
	assert.True(t, m.Match(map[string]string{
		"tenant":       "Acme Corp",
		"segment_type": "rent_schedule",
		"property_id":  "P-42",
	}))
	assert.False(t, m.Match(map[string]string{"tenant": "Other"}))
	assert.False(t, m.Match(map[string]string{"missing_key": "x"}))

	flat := m.Flatten()
	assert.Equal(t, "Acme Corp", flat["tenant"])
	assert.Equal(t, "rent_schedule", flat["segment_type"])
	assert.Equal(t, "P-42", flat["property_id"])
}

func TestChunkAllSkipsInvalidDocuments(t *testing.T) {
	c := newTestChunker(t, DefaultOptions())
	docs := []*document.ParsedDocument{
		testDoc(),
		{}, // missing doc_id
	}
	chunks, skipped := c.ChunkAll(docs)
	assert.NotEmpty(t, chunks)
	assert.Equal(t, 1, skipped)
}
