package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

func connectedStore(t *testing.T) *HNSWVectorStore {
	t.Helper()
	s := NewHNSWVectorStore()
	require.NoError(t, s.Connect(context.Background(), Config{}))
	return s
}

func TestCreateCollectionTwiceFailsWithCollectionExists(t *testing.T) {
	s := connectedStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "code_vectors", 4))
	err := s.CreateCollection(ctx, "code_vectors", 4)
	require.Error(t, err)
	var e *errkit.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "CollectionExists", e.Data["reason"])
}

func TestUpsertThenQueryReturnsClosestFirst(t *testing.T) {
	s := connectedStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "col", 2))

	require.NoError(t, s.Upsert(ctx, "col", []Vector{
		{ID: "a", Values: []float32{1, 0}},
		{ID: "b", Values: []float32{0, 1}},
	}))

	results, err := s.Query(ctx, "col", []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
}

func TestUpsertReplacesExistingID(t *testing.T) {
	s := connectedStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "col", 2))

	require.NoError(t, s.Upsert(ctx, "col", []Vector{{ID: "a", Values: []float32{1, 0}}}))
	require.NoError(t, s.Upsert(ctx, "col", []Vector{{ID: "a", Values: []float32{0, 1}}}))

	stats, err := s.GetStats(ctx, "col")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount)
}

func TestUpsertDimensionMismatchFails(t *testing.T) {
	s := connectedStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "col", 3))

	err := s.Upsert(ctx, "col", []Vector{{ID: "a", Values: []float32{1, 0}}})
	require.Error(t, err)
	assert.Equal(t, errkit.KindInvalidParams, errkit.KindOf(err))
}

func TestDeleteRemovesVectorFromStats(t *testing.T) {
	s := connectedStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "col", 2))
	require.NoError(t, s.Upsert(ctx, "col", []Vector{
		{ID: "a", Values: []float32{1, 0}},
		{ID: "b", Values: []float32{0, 1}},
	}))

	require.NoError(t, s.Delete(ctx, "col", []string{"a"}))
	stats, err := s.GetStats(ctx, "col")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount)
}

func TestQueryFilterByMetadata(t *testing.T) {
	s := connectedStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "col", 2))
	require.NoError(t, s.Upsert(ctx, "col", []Vector{
		{ID: "a", Values: []float32{1, 0}, Metadata: map[string]string{"language": "go"}},
		{ID: "b", Values: []float32{1, 0}, Metadata: map[string]string{"language": "python"}},
	}))

	results, err := s.Query(ctx, "col", []float32{1, 0}, 10, map[string]string{"language": "python"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestOperationsFailWhenNotConnected(t *testing.T) {
	s := NewHNSWVectorStore()
	err := s.CreateCollection(context.Background(), "col", 2)
	require.Error(t, err)
	assert.Equal(t, errkit.KindBackendUnavailable, errkit.KindOf(err))
}
