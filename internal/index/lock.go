package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// fileLock provides cross-process exclusive locking over a single
// on-disk BM25 index file, so a CLI `index` run and a resident MCP
// server watching the same project never interleave writes to it.
type fileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// newFileLock returns a lock guarding bm25Path, held at
// "<bm25Path>.lock".
func newFileLock(bm25Path string) *fileLock {
	return &fileLock{
		path:  bm25Path + ".lock",
		flock: flock.New(bm25Path + ".lock"),
	}
}

// Lock acquires the exclusive lock, blocking until it's available.
func (l *fileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire bm25 lock: %w", err)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call on an unlocked fileLock.
func (l *fileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release bm25 lock: %w", err)
	}
	l.locked = false
	return nil
}
