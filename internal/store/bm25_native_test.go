package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeBM25QueryRanksByRelevance(t *testing.T) {
	idx := NewNativeBM25Index()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"read", "button", "state"}))
	require.NoError(t, idx.Upsert(ctx, "b.go:1", []string{"write", "file", "state", "state"}))

	results, err := idx.Query(ctx, []string{"state"}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b.go:1", results[0].ID)
	assert.LessOrEqual(t, results[0].Score, float32(1.0))
	assert.Equal(t, float32(1.0), results[0].Score)
}

func TestNativeBM25QueryNoMatchesIsEmpty(t *testing.T) {
	idx := NewNativeBM25Index()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"alpha"}))

	results, err := idx.Query(ctx, []string{"nothing"}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNativeBM25DeleteThenUpsertRestoresPriorState(t *testing.T) {
	idx := NewNativeBM25Index()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"alpha", "beta"}))

	before, err := idx.Query(ctx, []string{"alpha"}, 10, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Delete(ctx, "a.go:1"))
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"alpha", "beta"}))

	after, err := idx.Query(ctx, []string{"alpha"}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestNativeBM25SaveLoadRoundTrip(t *testing.T) {
	idx := NewNativeBM25Index()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"read", "button"}))
	require.NoError(t, idx.Upsert(ctx, "b.go:4", []string{"write", "button", "button"}))

	path := filepath.Join(t.TempDir(), "bm25", "p1.idx")
	require.NoError(t, idx.Save(path))

	loaded := NewNativeBM25Index()
	require.NoError(t, loaded.Load(path))

	want, err := idx.Query(ctx, []string{"button"}, 10, nil)
	require.NoError(t, err)
	got, err := loaded.Query(ctx, []string{"button"}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNativeBM25AddThenDeleteRestoresSerializedState(t *testing.T) {
	idx := NewNativeBM25Index()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"alpha", "beta"}))

	before, err := serialize(t, idx)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, "b.go:1", []string{"gamma"}))
	require.NoError(t, idx.Delete(ctx, "b.go:1"))

	after, err := serialize(t, idx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func serialize(t *testing.T, idx *NativeBM25Index) ([]byte, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bm25.idx")
	if err := idx.Save(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func TestNativeBM25FilterExcludesNonMatchingMetadata(t *testing.T) {
	idx := NewNativeBM25Index()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"alpha"}))
	require.NoError(t, idx.Upsert(ctx, "b.go:1", []string{"alpha"}))
	idx.SetMetadata("a.go:1", map[string]string{"language": "go"})
	idx.SetMetadata("b.go:1", map[string]string{"language": "python"})

	results, err := idx.Query(ctx, []string{"alpha"}, 10, map[string]string{"language": "go"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go:1", results[0].ID)
}
