package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/medleycre/leaseindex/internal/errors"
)

// IngestLock is a cross-process file lock guarding writes to the corpus.
// Queries do not take it; only ingest, clear, and reingest do, so at most
// one writer mutates the chunk store and indices at a time.
type IngestLock struct {
	fl *flock.Flock
}

// NewIngestLock creates a lock backed by the given lock file path.
func NewIngestLock(path string) (*IngestLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIndexFailed, err)
	}
	return &IngestLock{fl: flock.New(path)}, nil
}

// Acquire blocks until the lock is held or the context is done. It polls
// rather than blocking in the kernel so cancellation stays responsive.
func (l *IngestLock) Acquire(ctx context.Context) error {
	ok, err := l.fl.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return errors.New(errors.ErrCodeIndexLocked,
			fmt.Sprintf("could not acquire ingest lock at %s", l.fl.Path()), err)
	}
	if !ok {
		return errors.New(errors.ErrCodeIndexLocked,
			fmt.Sprintf("ingest lock at %s is held by another process", l.fl.Path()), nil)
	}
	return nil
}

// TryAcquire attempts the lock once without blocking.
func (l *IngestLock) TryAcquire() (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeIndexLocked, err)
	}
	return ok, nil
}

// Release drops the lock. Safe to call when not held.
func (l *IngestLock) Release() error {
	return l.fl.Unlock()
}
