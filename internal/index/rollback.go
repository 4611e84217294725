package index

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/windschord/context-mcp-sub001/internal/store"
)

// bm25Snapshot is a per-file shadow copy of a BM25Index's on-disk
// serialization, taken before persisting one file's chunks so a cancelled
// indexing run can restore the index to its state before that file started,
// per spec §5's cancellation contract.
type bm25Snapshot struct {
	path string
}

// newBM25Snapshot serializes bm25's current state to a temporary file.
func newBM25Snapshot(bm25 store.BM25Index) (*bm25Snapshot, error) {
	path := filepath.Join(os.TempDir(), "codeindexd-bm25-shadow-"+uuid.New().String()+".idx")
	if err := bm25.Save(path); err != nil {
		return nil, err
	}
	return &bm25Snapshot{path: path}, nil
}

// restore reloads bm25 from the shadow copy, discarding any postings
// upserted since the snapshot was taken.
func (s *bm25Snapshot) restore(bm25 store.BM25Index) error {
	return bm25.Load(s.path)
}

// discard removes the shadow copy's backing file. Safe to call after
// restore or when the snapshot was never needed.
func (s *bm25Snapshot) discard() {
	_ = os.Remove(s.path)
}
