// Package cmd provides the CLI commands for leaseindex.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medleycre/leaseindex/internal/chunk"
	"github.com/medleycre/leaseindex/internal/config"
	"github.com/medleycre/leaseindex/internal/embed"
	"github.com/medleycre/leaseindex/internal/logging"
	"github.com/medleycre/leaseindex/internal/query"
	"github.com/medleycre/leaseindex/internal/store"
	"github.com/medleycre/leaseindex/internal/token"
	"github.com/medleycre/leaseindex/pkg/version"
)

var (
	cfgPath        string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the leaseindex root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaseindex",
		Short: "Hybrid retrieval engine for commercial lease documents",
		Long: `leaseindex chunks parsed lease documents, indexes them lexically and
semantically, and answers queries with reciprocal-rank-fused results.

Documents are JSON files produced by an upstream parser, one lease per file.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("leaseindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.leaseindex/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newTenantsCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

// Execute runs the CLI with signal-aware context cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.Config{Level: "info", WriteToStderr: false}
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

// buildEngine assembles the full pipeline from configuration and warm-starts
// the indices from the persisted chunk store.
func buildEngine(ctx context.Context, cfg *config.Config) (*query.Engine, func(), error) {
	tok, err := newTokenizer(cfg)
	if err != nil {
		return nil, nil, err
	}

	chunker, err := chunk.NewChunker(tok, chunk.Options{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		MinChunkSize: cfg.Chunking.MinChunkSize,
	})
	if err != nil {
		return nil, nil, err
	}

	embedder, err := embed.NewEmbedder(embed.Options{
		Backend:    cfg.Embedding.Backend,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		CacheSize:  cfg.Embedding.CacheSize,
	}, tok)
	if err != nil {
		return nil, nil, err
	}

	lexical, err := store.NewBleveLexicalIndex()
	if err != nil {
		return nil, nil, err
	}

	vector := store.NewHNSWIndex(store.HNSWConfig{Dimensions: embedder.Dimensions()})

	chunkStore, err := store.NewSQLiteChunkStore(cfg.DatabasePath())
	if err != nil {
		_ = lexical.Close()
		return nil, nil, err
	}

	lock, err := store.NewIngestLock(cfg.LockPath())
	if err != nil {
		_ = lexical.Close()
		_ = chunkStore.Close()
		return nil, nil, err
	}

	engine := query.NewEngine(query.Deps{
		Chunker:    chunker,
		Embedder:   embedder,
		Lexical:    lexical,
		Vector:     vector,
		ChunkStore: chunkStore,
		Lock:       lock,
	})

	cleanup := func() {
		_ = lexical.Close()
		_ = chunkStore.Close()
	}

	if err := engine.WarmStart(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}

func newTokenizer(cfg *config.Config) (token.Tokenizer, error) {
	if cfg.Chunking.Tokenizer == "word" {
		return token.NewWordTokenizer(), nil
	}
	return token.NewTiktokenTokenizer("cl100k_base")
}
