package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/document"
	"github.com/medleycre/leaseindex/internal/errors"
)

// SQLiteChunkStore persists chunks and embeddings in a single SQLite
// database. It is the source of truth for the corpus: both in-memory
// indices are rebuilt from it on warm start, so embeddings are computed
// once per chunk per corpus version.
type SQLiteChunkStore struct {
	db   *sql.DB
	path string
}

const chunkSchema = `
CREATE TABLE IF NOT EXISTS chunks (
    id           TEXT PRIMARY KEY,
    doc_id       TEXT NOT NULL,
    tenant       TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL,
    token_count  INTEGER NOT NULL,
    segment_type TEXT NOT NULL,
    segment_name TEXT NOT NULL,
    chunk_index  INTEGER NOT NULL,
    part         INTEGER NOT NULL DEFAULT 0,
    metadata     TEXT NOT NULL DEFAULT '{}',
    embedding    BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks(tenant);
`

// NewSQLiteChunkStore opens (or creates) the chunk database. An empty path
// opens an in-memory database, used by tests.
func NewSQLiteChunkStore(path string) (*SQLiteChunkStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// table-lock errors under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(chunkSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("create schema: %w", err))
	}

	return &SQLiteChunkStore{db: db, path: path}, nil
}

// SaveChunks upserts chunks with their embeddings in one transaction.
func (s *SQLiteChunkStore) SaveChunks(ctx context.Context, chunks []*chunk.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings)), nil)
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO chunks (id, doc_id, tenant, content, token_count, segment_type,
                            segment_name, chunk_index, part, metadata, embedding)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            doc_id = excluded.doc_id,
            tenant = excluded.tenant,
            content = excluded.content,
            token_count = excluded.token_count,
            segment_type = excluded.segment_type,
            segment_name = excluded.segment_name,
            chunk_index = excluded.chunk_index,
            part = excluded.part,
            metadata = excluded.metadata,
            embedding = excluded.embedding`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	defer stmt.Close()

	for i, ch := range chunks {
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			return errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("marshal metadata for %s: %w", ch.ID, err))
		}
		_, err = stmt.ExecContext(ctx,
			ch.ID, ch.DocID, ch.Metadata.Tenant, ch.Content, ch.TokenCount,
			string(ch.SegmentType), ch.SegmentName, ch.ChunkIndex, ch.Part,
			string(meta), encodeEmbedding(embeddings[i]))
		if err != nil {
			return errors.Wrap(errors.ErrCodeIndexFailed, fmt.Errorf("upsert chunk %s: %w", ch.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return nil
}

// LoadAll returns every persisted chunk with its embedding, in document and
// chunk-index order.
func (s *SQLiteChunkStore) LoadAll(ctx context.Context) ([]*chunk.Chunk, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, doc_id, content, token_count, segment_type, segment_name,
               chunk_index, part, metadata, embedding
        FROM chunks ORDER BY doc_id, chunk_index`)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	defer rows.Close()

	var chunks []*chunk.Chunk
	var embeddings [][]float32
	for rows.Next() {
		ch, emb, err := scanChunk(rows)
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, ch)
		embeddings = append(embeddings, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return chunks, embeddings, nil
}

func scanChunk(rows *sql.Rows) (*chunk.Chunk, []float32, error) {
	var (
		ch      chunk.Chunk
		segType string
		meta    string
		blob    []byte
	)
	err := rows.Scan(&ch.ID, &ch.DocID, &ch.Content, &ch.TokenCount, &segType,
		&ch.SegmentName, &ch.ChunkIndex, &ch.Part, &meta, &blob)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeCorruptIndex, err)
	}
	if err := json.Unmarshal([]byte(meta), &ch.Metadata); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeCorruptIndex, fmt.Errorf("metadata for %s: %w", ch.ID, err))
	}
	ch.SegmentType = document.SegmentType(segType)
	return &ch, decodeEmbedding(blob), nil
}

// DeleteByDoc removes every chunk belonging to a document.
func (s *SQLiteChunkStore) DeleteByDoc(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return nil
}

// Clear removes all chunks.
func (s *SQLiteChunkStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return nil
}

// Tenants returns the distinct non-empty tenant names, sorted.
func (s *SQLiteChunkStore) Tenants(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT tenant FROM chunks WHERE tenant != '' ORDER BY tenant`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Count returns the number of persisted chunks.
func (s *SQLiteChunkStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteChunkStore) Close() error {
	return s.db.Close()
}

var _ ChunkStore = (*SQLiteChunkStore)(nil)

// encodeEmbedding packs a float32 vector as little-endian bytes.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a vector encoded by encodeEmbedding.
func decodeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
