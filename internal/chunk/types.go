// Package chunk converts parsed lease documents into retrieval-ready units.
// Chunking is deterministic: the same document and the same options always
// produce a byte-identical chunk list.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/medleycre/leaseindex/internal/document"
	"github.com/medleycre/leaseindex/internal/errors"
)

// Chunk size defaults, in tokens.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
	DefaultMinChunkSize = 100
)

// Metadata is the typed metadata attached to every chunk. Core fields are
// fixed; Extra carries truly dynamic fields (extracted data sheet values).
type Metadata struct {
	// Tenant is the tenant this lease belongs to.
	Tenant string `json:"tenant"`

	// SegmentType is the structural label of the source segment.
	SegmentType document.SegmentType `json:"segment_type"`

	// SegmentName is the human-readable segment label, used for citation.
	SegmentName string `json:"segment_name"`

	// SourceFile is the originating file name.
	SourceFile string `json:"source_file"`

	// Extra holds dynamic key-value fields.
	Extra map[string]string `json:"extra,omitempty"`
}

// Reserved filter keys mapping to the typed core fields.
const (
	FilterKeyTenant      = "tenant"
	FilterKeySegmentType = "segment_type"
	FilterKeySegmentName = "segment_name"
	FilterKeySourceFile  = "source_file"
)

// Match reports whether the metadata satisfies every key=value pair in
// filter. Core fields are matched by their reserved keys; any other key is
// looked up in Extra. A missing key never matches.
func (m Metadata) Match(filter map[string]string) bool {
	for key, want := range filter {
		var got string
		switch key {
		case FilterKeyTenant:
			got = m.Tenant
		case FilterKeySegmentType:
			got = string(m.SegmentType)
		case FilterKeySegmentName:
			got = m.SegmentName
		case FilterKeySourceFile:
			got = m.SourceFile
		default:
			v, ok := m.Extra[key]
			if !ok {
				return false
			}
			got = v
		}
		if got != want {
			return false
		}
	}
	return true
}

// Flatten returns the metadata as a flat string map, core fields under
// their reserved keys plus all Extra entries. Used by storage backends.
func (m Metadata) Flatten() map[string]string {
	flat := make(map[string]string, 4+len(m.Extra))
	for k, v := range m.Extra {
		flat[k] = v
	}
	flat[FilterKeyTenant] = m.Tenant
	flat[FilterKeySegmentType] = string(m.SegmentType)
	flat[FilterKeySegmentName] = m.SegmentName
	flat[FilterKeySourceFile] = m.SourceFile
	return flat
}

// Chunk is the atomic retrieval unit.
type Chunk struct {
	// ID is stable within a corpus version (content-addressable).
	ID string `json:"id"`

	// DocID identifies the owning document.
	DocID string `json:"doc_id"`

	// Content is the normalized chunk text. Non-empty.
	Content string `json:"content"`

	// TokenCount is the token count of Content, recomputed whenever
	// Content changes.
	TokenCount int `json:"token_count"`

	// SegmentType is immutable once assigned.
	SegmentType document.SegmentType `json:"segment_type"`

	// SegmentName is the human-readable label ("Article IV: Rent (Part 2)").
	SegmentName string `json:"segment_name"`

	// ChunkIndex is the emission order within the document. Part 1 always
	// precedes part 2, which keeps citation stable.
	ChunkIndex int `json:"chunk_index"`

	// Part is the 1-based sub-part number for re-split sections, 0 when
	// the segment was emitted whole.
	Part int `json:"part"`

	// Metadata is the typed metadata consumers filter on.
	Metadata Metadata `json:"metadata"`
}

// Options configures the chunker.
type Options struct {
	// ChunkSize is the target chunk size in tokens.
	ChunkSize int

	// ChunkOverlap is the number of tokens carried across split boundaries.
	ChunkOverlap int

	// MinChunkSize is the minimum tokens for a chunk to carry retrievable
	// signal. Shorter chunks are discarded, never padded.
	MinChunkSize int
}

// DefaultOptions returns the chunking defaults (1000/100/100 tokens).
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MinChunkSize: DefaultMinChunkSize,
	}
}

// Validate rejects unusable size parameters at construction time.
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return errors.ConfigError(fmt.Sprintf("chunk_size must be positive, got %d", o.ChunkSize), nil)
	}
	if o.MinChunkSize <= 0 {
		return errors.ConfigError(fmt.Sprintf("min_chunk_size must be positive, got %d", o.MinChunkSize), nil)
	}
	if o.ChunkOverlap < 0 {
		return errors.ConfigError(fmt.Sprintf("chunk_overlap must be non-negative, got %d", o.ChunkOverlap), nil)
	}
	if o.ChunkOverlap >= o.ChunkSize {
		return errors.ConfigError(fmt.Sprintf("chunk_overlap (%d) must be smaller than chunk_size (%d)", o.ChunkOverlap, o.ChunkSize), nil)
	}
	if o.MinChunkSize > o.ChunkSize {
		return errors.ConfigError(fmt.Sprintf("min_chunk_size (%d) must not exceed chunk_size (%d)", o.MinChunkSize, o.ChunkSize), nil)
	}
	return nil
}

// generateChunkID derives a stable chunk ID from the owning document, the
// emission index, and a content hash.
func generateChunkID(docID string, index int, content string) string {
	contentHash := sha256.Sum256([]byte(content))
	input := fmt.Sprintf("%s:%d:%s", docID, index, hex.EncodeToString(contentHash[:])[:16])
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}
