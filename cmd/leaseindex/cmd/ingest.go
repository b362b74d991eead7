package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/medleycre/leaseindex/internal/document"
	"github.com/medleycre/leaseindex/internal/watch"
)

func newIngestCmd() *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest parsed lease documents from a file or directory",
		Long: `Ingest chunks the given parsed-document JSON files, embeds the chunks,
persists them, and rebuilds the search indices.

With --watch the command keeps running and re-ingests documents as their
files change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			path := args[0]
			docs, skippedFiles, err := loadDocuments(path)
			if err != nil {
				return err
			}
			if skippedFiles > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d unreadable document file(s)\n", skippedFiles)
			}

			stats, err := engine.Ingest(cmd.Context(), docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Ingested %d document(s) into %d chunk(s) in %s",
				stats.Documents, stats.Chunks, stats.Took.Round(time.Millisecond))
			if stats.SkippedSections > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d section(s) skipped)", stats.SkippedSections)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			if !watchMode {
				return nil
			}

			info, err := os.Stat(path)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("--watch requires a directory, got %s", path)
			}

			watcher := watch.NewWatcher(engine, path,
				time.Duration(cfg.Watch.DebounceMS)*time.Millisecond)
			fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes, Ctrl-C to stop...")
			if err := watcher.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watchMode, "watch", false, "Keep running and reingest on file changes")
	return cmd
}

func loadDocuments(path string) ([]*document.ParsedDocument, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir() {
		return document.LoadDir(path)
	}
	doc, err := document.LoadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return []*document.ParsedDocument{doc}, 0, nil
}
