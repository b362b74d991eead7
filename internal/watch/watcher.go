package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/medleycre/leaseindex/internal/document"
	"github.com/medleycre/leaseindex/internal/errors"
	"github.com/medleycre/leaseindex/internal/query"
)

// Watcher observes a directory of parsed-document JSON files and keeps the
// index in sync: changed files re-ingest, deleted files drop out.
type Watcher struct {
	engine    *query.Engine
	dir       string
	debouncer *Debouncer
}

// NewWatcher creates a watcher over the given document directory.
func NewWatcher(engine *query.Engine, dir string, debounce time.Duration) *Watcher {
	return &Watcher{
		engine:    engine,
		dir:       dir,
		debouncer: NewDebouncer(debounce),
	}
}

// Run watches until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}
	defer fsw.Close()
	defer w.debouncer.Stop()

	if err := fsw.Add(w.dir); err != nil {
		return errors.New(errors.ErrCodeDocumentNotFound,
			"cannot watch document directory "+w.dir, err)
	}
	slog.Info("watching document directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isDocumentFile(ev.Name) {
				continue
			}
			switch {
			case ev.Op.Has(fsnotify.Create):
				w.debouncer.Add(FileEvent{Path: ev.Name, Operation: OpCreate})
			case ev.Op.Has(fsnotify.Write):
				w.debouncer.Add(FileEvent{Path: ev.Name, Operation: OpModify})
			case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
				w.debouncer.Add(FileEvent{Path: ev.Name, Operation: OpDelete})
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)

		case batch := <-w.debouncer.Events():
			w.apply(ctx, batch)
		}
	}
}

func (w *Watcher) apply(ctx context.Context, batch []FileEvent) {
	for _, ev := range batch {
		switch ev.Operation {
		case OpCreate, OpModify:
			doc, err := document.LoadFile(ev.Path)
			if err != nil {
				slog.Warn("skipping unreadable document", "path", ev.Path, "error", err)
				continue
			}
			if _, err := w.engine.ReingestDocument(ctx, doc); err != nil {
				slog.Error("reingest failed", "path", ev.Path, "error", err)
				continue
			}
			slog.Info("document reingested", "doc_id", doc.DocID)

		case OpDelete:
			docID := docIDFromPath(ev.Path)
			if err := w.engine.DeleteDocument(ctx, docID); err != nil {
				slog.Error("document removal failed", "doc_id", docID, "error", err)
				continue
			}
			slog.Info("document removed", "doc_id", docID)
		}
	}
}

func isDocumentFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// docIDFromPath mirrors document.LoadFile's default DocID for files that no
// longer exist: the file name stem.
// TODO: track path to doc_id mappings at ingest so deletes honor documents
// that override doc_id in their JSON.
func docIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
