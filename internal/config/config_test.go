package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medleycre/leaseindex/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 100, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.InDelta(t, 0.6, cfg.Search.VectorWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Search.LexicalWeight, 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/leaseindex-test
chunking:
  chunk_size: 500
  chunk_overlap: 50
  min_chunk_size: 25
  tokenizer: word
search:
  final_k: 5
embedding:
  backend: static
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/leaseindex-test", cfg.DataDir)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, "word", cfg.Chunking.Tokenizer)
	assert.Equal(t, 5, cfg.Search.FinalK)
	assert.Equal(t, "static", cfg.Embedding.Backend)

	// Unset fields keep defaults.
	assert.Equal(t, 20, cfg.Search.VectorK)
	assert.Equal(t, 60, cfg.Search.RRFK)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
	assert.True(t, errors.IsFatal(err))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEASEINDEX_CHUNK_SIZE", "800")
	t.Setenv("LEASEINDEX_EMBEDDING_BACKEND", "static")
	t.Setenv("LEASEINDEX_VECTOR_WEIGHT", "0.7")
	t.Setenv("LEASEINDEX_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, "static", cfg.Embedding.Backend)
	assert.InDelta(t, 0.7, cfg.Search.VectorWeight, 1e-9)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestOpenAIKeyFallback(t *testing.T) {
	t.Setenv("LEASEINDEX_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.Embedding.APIKey)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap >= size", func(c *Config) { c.Chunking.ChunkOverlap = c.Chunking.ChunkSize }},
		{"zero min chunk", func(c *Config) { c.Chunking.MinChunkSize = 0 }},
		{"unknown tokenizer", func(c *Config) { c.Chunking.Tokenizer = "gpt9" }},
		{"zero final_k", func(c *Config) { c.Search.FinalK = 0 }},
		{"negative weight", func(c *Config) { c.Search.VectorWeight = -1 }},
		{"both weights zero", func(c *Config) { c.Search.VectorWeight = 0; c.Search.LexicalWeight = 0 }},
		{"unknown backend", func(c *Config) { c.Embedding.Backend = "llama" }},
		{"model without dims", func(c *Config) { c.Embedding.Model = "custom" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data/leaseindex"
	assert.Equal(t, "/data/leaseindex/chunks.db", cfg.DatabasePath())
	assert.Equal(t, "/data/leaseindex/ingest.lock", cfg.LockPath())
	assert.Equal(t, "/data/leaseindex/vectors.hnsw", cfg.VectorIndexPath())
}
