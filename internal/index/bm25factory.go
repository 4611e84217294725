package index

import (
	"os"
	"path/filepath"

	"github.com/windschord/context-mcp-sub001/internal/store"
)

// bm25Subdir is the directory, relative to a project root, holding that
// project's on-disk BM25 index file, per spec §6 persisted state.
const bm25Subdir = ".context-mcp/bm25"

// BM25Factory opens (creating if absent) the BM25Index for one project.
type BM25Factory func(rootPath, projectID string) (store.BM25Index, string, error)

// FileBM25Factory is a BM25Factory backed by NativeBM25Index: it returns
// the project's index, loaded from disk if an index file is present, and
// the path the caller should Save back to on completion.
func FileBM25Factory(rootPath, projectID string) (store.BM25Index, string, error) {
	dir := filepath.Join(rootPath, bm25Subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", err
	}
	path := filepath.Join(dir, projectID+".idx")

	idx := store.NewNativeBM25Index()
	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(path); err != nil {
			return nil, "", err
		}
	}
	return idx, path, nil
}
