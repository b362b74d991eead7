// Package config loads and validates leaseindex configuration. Precedence,
// highest first: environment variables (LEASEINDEX_*), the config file,
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medleycre/leaseindex/internal/errors"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "LEASEINDEX_"

// Config is the complete leaseindex configuration.
type Config struct {
	// DataDir is where the chunk database, index files, and ingest lock
	// live.
	DataDir string `yaml:"data_dir"`

	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ChunkingConfig configures the chunker's token budgets.
type ChunkingConfig struct {
	// ChunkSize is the target chunk size in tokens.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the tail overlap carried across split boundaries.
	ChunkOverlap int `yaml:"chunk_overlap"`

	// MinChunkSize is the minimum size for a trailing partial chunk.
	MinChunkSize int `yaml:"min_chunk_size"`

	// Tokenizer selects the token counter: "tiktoken" or "word".
	Tokenizer string `yaml:"tokenizer"`
}

// SearchConfig configures hybrid retrieval.
type SearchConfig struct {
	VectorK       int     `yaml:"vector_k"`
	LexicalK      int     `yaml:"lexical_k"`
	FinalK        int     `yaml:"final_k"`
	RRFK          int     `yaml:"rrf_k"`
	VectorWeight  float64 `yaml:"vector_weight"`
	LexicalWeight float64 `yaml:"lexical_weight"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	// Backend is "openai" or "static".
	Backend string `yaml:"backend"`

	// APIKey authenticates the OpenAI backend. Usually supplied via the
	// LEASEINDEX_OPENAI_API_KEY or OPENAI_API_KEY environment variables
	// rather than the file.
	APIKey string `yaml:"api_key"`

	// Model overrides the default embedding model.
	Model string `yaml:"model"`

	// Dimensions is required when Model is set.
	Dimensions int `yaml:"dimensions"`

	// CacheSize sizes the LRU embedding cache.
	CacheSize int `yaml:"cache_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// FilePath is the log file location. Empty logs to stderr only.
	FilePath string `yaml:"file_path"`

	// MaxSizeMB rotates the log file past this size.
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxFiles caps the number of rotated files kept.
	MaxFiles int `yaml:"max_files"`
}

// WatchConfig configures document directory watching.
type WatchConfig struct {
	// DebounceMS coalesces bursts of file events into one reingest.
	DebounceMS int `yaml:"debounce_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".leaseindex"),
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 100,
			MinChunkSize: 100,
			Tokenizer:    "tiktoken",
		},
		Search: SearchConfig{
			VectorK:       20,
			LexicalK:      20,
			FinalK:        10,
			RRFK:          60,
			VectorWeight:  0.6,
			LexicalWeight: 0.4,
		},
		Embedding: EmbeddingConfig{
			Backend:   "openai",
			CacheSize: 1000,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// Load reads the config file (when path is non-empty), applies environment
// overrides, and validates. A missing explicit path is an error; an empty
// path just means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.New(errors.ErrCodeConfigNotFound,
					fmt.Sprintf("config file %s not found", path), err)
			}
			return nil, errors.ConfigError(fmt.Sprintf("cannot read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("config file %s is not valid YAML", path), err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from LEASEINDEX_* variables. The OpenAI
// key additionally falls back to the conventional OPENAI_API_KEY.
func (c *Config) applyEnv() {
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.Chunking.Tokenizer, "TOKENIZER")
	setInt(&c.Chunking.ChunkSize, "CHUNK_SIZE")
	setInt(&c.Chunking.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&c.Chunking.MinChunkSize, "MIN_CHUNK_SIZE")

	setInt(&c.Search.VectorK, "VECTOR_K")
	setInt(&c.Search.LexicalK, "LEXICAL_K")
	setInt(&c.Search.FinalK, "FINAL_K")
	setInt(&c.Search.RRFK, "RRF_K")
	setFloat(&c.Search.VectorWeight, "VECTOR_WEIGHT")
	setFloat(&c.Search.LexicalWeight, "LEXICAL_WEIGHT")

	setString(&c.Embedding.Backend, "EMBEDDING_BACKEND")
	setString(&c.Embedding.APIKey, "OPENAI_API_KEY")
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&c.Embedding.Dimensions, "EMBEDDING_DIMENSIONS")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.FilePath, "LOG_FILE")

	setInt(&c.Watch.DebounceMS, "WATCH_DEBOUNCE_MS")
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.ConfigError("data_dir must not be empty", nil)
	}

	ch := c.Chunking
	if ch.ChunkSize <= 0 {
		return errors.ConfigError(fmt.Sprintf("chunking.chunk_size must be positive, got %d", ch.ChunkSize), nil)
	}
	if ch.ChunkOverlap < 0 || ch.ChunkOverlap >= ch.ChunkSize {
		return errors.ConfigError(fmt.Sprintf("chunking.chunk_overlap must be in [0, chunk_size), got %d", ch.ChunkOverlap), nil)
	}
	if ch.MinChunkSize <= 0 || ch.MinChunkSize > ch.ChunkSize {
		return errors.ConfigError(fmt.Sprintf("chunking.min_chunk_size must be in (0, chunk_size], got %d", ch.MinChunkSize), nil)
	}
	switch ch.Tokenizer {
	case "tiktoken", "word":
	default:
		return errors.ConfigError(fmt.Sprintf("chunking.tokenizer must be tiktoken or word, got %q", ch.Tokenizer), nil)
	}

	s := c.Search
	if s.VectorK <= 0 || s.LexicalK <= 0 || s.FinalK <= 0 || s.RRFK <= 0 {
		return errors.ConfigError("search depths and rrf_k must be positive", nil)
	}
	if s.VectorWeight < 0 || s.LexicalWeight < 0 || (s.VectorWeight == 0 && s.LexicalWeight == 0) {
		return errors.ConfigError("search weights must be non-negative with at least one positive", nil)
	}

	switch c.Embedding.Backend {
	case "openai", "static":
	default:
		return errors.ConfigError(fmt.Sprintf("embedding.backend must be openai or static, got %q", c.Embedding.Backend), nil)
	}
	if c.Embedding.Model != "" && c.Embedding.Dimensions <= 0 {
		return errors.ConfigError("embedding.dimensions is required when embedding.model is set", nil)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigError(fmt.Sprintf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level), nil)
	}

	if c.Watch.DebounceMS < 0 {
		return errors.ConfigError("watch.debounce_ms must be non-negative", nil)
	}
	return nil
}

// DatabasePath is the chunk database location under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "chunks.db")
}

// LockPath is the ingest lock location under DataDir.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "ingest.lock")
}

// VectorIndexPath is the persisted vector index location under DataDir.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.DataDir, "vectors.hnsw")
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
