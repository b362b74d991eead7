package chunk

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/medleycre/leaseindex/internal/document"
	"github.com/medleycre/leaseindex/internal/errors"
	"github.com/medleycre/leaseindex/internal/token"
)

// Chunker converts parsed documents into chunks using a greedy
// paragraph-packing strategy with tail overlap. All token accounting goes
// through the injected tokenizer; the chunker never counts tokens itself.
type Chunker struct {
	tok  token.Tokenizer
	opts Options
}

// NewChunker builds a chunker. Options are validated once here so chunking
// itself cannot fail on configuration.
func NewChunker(tok token.Tokenizer, opts Options) (*Chunker, error) {
	if tok == nil {
		return nil, errors.ValidationError("tokenizer is required", nil)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{tok: tok, opts: opts}, nil
}

// ChunkDocument converts a parsed document into its chunk list. Priority
// segments (data sheet, rent schedule tables) are extracted first and never
// split; the remaining sections are packed greedily. Returns the chunks in
// emission order and the number of sections skipped due to per-section
// failures. A document that produces zero chunks is not an error.
func (c *Chunker) ChunkDocument(doc *document.ParsedDocument) ([]*Chunk, int, error) {
	if doc == nil || !doc.Valid() {
		return nil, 0, errors.ValidationError("document is missing doc_id", nil)
	}

	var chunks []*Chunk
	skipped := 0
	index := 0

	if ds := c.buildDataSheetChunk(doc, index); ds != nil {
		chunks = append(chunks, ds)
		index++
	}

	for _, table := range doc.Tables {
		tc := c.buildTableChunk(doc, table, index)
		if tc == nil {
			continue
		}
		chunks = append(chunks, tc)
		index++
	}

	// Sections iterate in sorted name order so chunk IDs and indices are
	// reproducible across runs.
	names := make([]string, 0, len(doc.Sections))
	for name := range doc.Sections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sectionChunks, err := c.chunkSection(doc, name, doc.Sections[name], index)
		if err != nil {
			slog.Warn("section chunking failed, skipping section",
				"doc_id", doc.DocID,
				"section", name,
				"error", err)
			skipped++
			continue
		}
		chunks = append(chunks, sectionChunks...)
		index += len(sectionChunks)
	}

	return chunks, skipped, nil
}

// ChunkAll chunks a batch of documents, skipping documents that fail
// entirely. Returns all chunks plus the total skipped-section count.
func (c *Chunker) ChunkAll(docs []*document.ParsedDocument) ([]*Chunk, int) {
	var all []*Chunk
	skipped := 0
	for _, doc := range docs {
		chunks, s, err := c.ChunkDocument(doc)
		if err != nil {
			slog.Warn("document chunking failed, skipping document",
				"doc_id", docID(doc),
				"error", err)
			skipped++
			continue
		}
		all = append(all, chunks...)
		skipped += s
	}
	return all, skipped
}

func docID(doc *document.ParsedDocument) string {
	if doc == nil {
		return ""
	}
	return doc.DocID
}

// buildDataSheetChunk renders the extracted data sheet fields as a single
// chunk. The data sheet is never split regardless of size: it is the densest
// retrieval target in a lease and splitting it would scatter the key terms.
func (c *Chunker) buildDataSheetChunk(doc *document.ParsedDocument, index int) *Chunk {
	if len(doc.DataSheet) == 0 {
		return nil
	}

	keys := make([]string, 0, len(doc.DataSheet))
	for k := range doc.DataSheet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("DATA SHEET SUMMARY\n\n")
	for _, k := range keys {
		b.WriteString(titleizeKey(k))
		b.WriteString(": ")
		b.WriteString(doc.DataSheet[k])
		b.WriteString("\n")
	}
	content := strings.TrimRight(b.String(), "\n")

	return c.newChunk(doc, content, document.SegmentDataSheet, "Data Sheet Summary", index, 0)
}

// buildTableChunk renders one table as a single chunk. Tables are never
// split, even past the chunk size: a rent schedule row only makes sense in
// the context of its header.
func (c *Chunker) buildTableChunk(doc *document.ParsedDocument, table document.Table, index int) *Chunk {
	if len(table.Rows) == 0 && len(table.Headers) == 0 {
		return nil
	}

	segType := document.ClassifyTable(table)

	var b strings.Builder
	switch segType {
	case document.SegmentRentSchedule:
		tenant := doc.TenantName
		if tenant == "" {
			tenant = doc.DocID
		}
		fmt.Fprintf(&b, "RENT SCHEDULE for %s\n\n", tenant)
	default:
		b.WriteString("TABLE\n\n")
	}

	if len(table.Headers) > 0 {
		b.WriteString(strings.Join(table.Headers, " | "))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", 50))
		b.WriteString("\n")
	}
	for _, row := range table.Rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	content := strings.TrimRight(b.String(), "\n")

	name := "Table"
	if segType == document.SegmentRentSchedule {
		name = "Rent Schedule"
	}

	ch := c.newChunk(doc, content, segType, name, index, 0)
	if ch.TokenCount > c.opts.ChunkSize {
		slog.Debug("table chunk exceeds chunk size, kept whole",
			"doc_id", doc.DocID,
			"segment", name,
			"tokens", ch.TokenCount)
	}
	return ch
}

// chunkSection packs one section's paragraphs into chunks. Paragraphs are
// blank-line separated. When adding a paragraph would exceed the chunk size,
// the buffer is closed and the next chunk is seeded with the tail overlap of
// the closed chunk. A final partial chunk is kept only when it meets the
// minimum size.
func (c *Chunker) chunkSection(doc *document.ParsedDocument, name, text string, startIndex int) (chunks []*Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = errors.New(errors.ErrCodeChunkingFailed, fmt.Sprintf("panic while chunking section %q: %v", name, r), nil)
		}
	}()

	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return nil, nil
	}

	segType := document.ClassifySection(name)

	var parts []string
	var buf strings.Builder
	for _, para := range paras {
		candidate := para
		if buf.Len() > 0 {
			candidate = buf.String() + "\n\n" + para
		}
		if c.tok.Count(candidate) > c.opts.ChunkSize && buf.Len() > 0 {
			closed := buf.String()
			parts = append(parts, closed)
			buf.Reset()
			tail := c.tok.Tail(closed, c.opts.ChunkOverlap)
			if tail != "" {
				buf.WriteString(tail)
				buf.WriteString("\n\n")
			}
			buf.WriteString(para)
			continue
		}
		buf.Reset()
		buf.WriteString(candidate)
	}

	if buf.Len() > 0 {
		last := buf.String()
		// Chunks below the minimum size are discarded, never padded; a
		// whole section shorter than min_chunk_size yields nothing.
		if c.tok.Count(last) >= c.opts.MinChunkSize {
			parts = append(parts, last)
		}
	}

	for i, content := range parts {
		segName := name
		part := 0
		if len(parts) > 1 {
			part = i + 1
			segName = fmt.Sprintf("%s (Part %d)", name, part)
		}
		chunks = append(chunks, c.newChunk(doc, content, segType, segName, startIndex+len(chunks), part))
	}
	return chunks, nil
}

func (c *Chunker) newChunk(doc *document.ParsedDocument, content string, segType document.SegmentType, segName string, index, part int) *Chunk {
	meta := Metadata{
		Tenant:      doc.TenantName,
		SegmentType: segType,
		SegmentName: segName,
		SourceFile:  doc.SourceFile,
	}
	if len(doc.Metadata) > 0 {
		meta.Extra = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta.Extra[k] = v
		}
	}
	return &Chunk{
		ID:          generateChunkID(doc.DocID, index, content),
		DocID:       doc.DocID,
		Content:     content,
		TokenCount:  c.tok.Count(content),
		SegmentType: segType,
		SegmentName: segName,
		ChunkIndex:  index,
		Part:        part,
		Metadata:    meta,
	}
}

// splitParagraphs splits text on blank lines, trimming each paragraph and
// dropping empties.
func splitParagraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// titleizeKey converts a snake_case data sheet key to a display label
// ("base_rent" -> "Base Rent").
func titleizeKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
