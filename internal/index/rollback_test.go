package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/store"
)

func TestBM25SnapshotRestoreDiscardsLaterWrites(t *testing.T) {
	bm25 := store.NewNativeBM25Index()
	ctx := context.Background()
	require.NoError(t, bm25.Upsert(ctx, "a.go:1", []string{"alpha"}))

	snap, err := newBM25Snapshot(bm25)
	require.NoError(t, err)
	defer snap.discard()

	require.NoError(t, bm25.Upsert(ctx, "b.go:1", []string{"beta"}))

	results, err := bm25.Query(ctx, []string{"beta"}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1, "beta should be queryable before restore")

	require.NoError(t, snap.restore(bm25))

	results, err = bm25.Query(ctx, []string{"beta"}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results, "restore should discard writes made after the snapshot")

	results, err = bm25.Query(ctx, []string{"alpha"}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go:1", results[0].ID)
}
