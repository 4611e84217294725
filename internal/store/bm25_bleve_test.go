package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBleveBM25UpsertAndQuery(t *testing.T) {
	idx, err := NewBleveBM25Index("")
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"read", "button", "state"}))
	require.NoError(t, idx.Upsert(ctx, "b.go:1", []string{"write", "file"}))

	results, err := idx.Query(ctx, []string{"button"}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go:1", results[0].ID)
	assert.Equal(t, float32(1.0), results[0].Score)
}

func TestBleveBM25DeleteRemovesDocument(t *testing.T) {
	idx, err := NewBleveBM25Index("")
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.go:1", []string{"alpha"}))
	require.NoError(t, idx.Delete(ctx, "a.go:1"))

	results, err := idx.Query(ctx, []string{"alpha"}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveBM25EmptyTokensYieldsNoResults(t *testing.T) {
	idx, err := NewBleveBM25Index("")
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Query(context.Background(), nil, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
