package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/embed"
	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/store"
)

type failingEmbedder struct{ embed.Embedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errkit.New(errkit.KindBackendUnavailable, "embedder down")
}
func (failingEmbedder) Dimension() int { return 8 }

type failingVectorStore struct{ store.VectorStore }

func (failingVectorStore) GetStats(context.Context, string) (store.Stats, error) {
	return store.Stats{}, errkit.New(errkit.KindBackendUnavailable, "vector store down")
}

type notFoundVectorStore struct{ store.VectorStore }

func (notFoundVectorStore) GetStats(context.Context, string) (store.Stats, error) {
	return store.Stats{}, errkit.New(errkit.KindNotFound, "sentinel collection missing")
}

func connectedVector(t *testing.T) *store.HNSWVectorStore {
	t.Helper()
	v := store.NewHNSWVectorStore()
	require.NoError(t, v.Connect(context.Background(), store.Config{}))
	return v
}

func TestCheckReturnsHealthyWhenBothUp(t *testing.T) {
	c := New(embed.NewStaticEmbedder(), connectedVector(t), "v1")
	status, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OverallHealthy, status.Status)
	assert.Equal(t, StatusUp, status.Dependencies.VectorStore.Status)
	assert.Equal(t, StatusUp, status.Dependencies.EmbeddingEngine.Status)
}

func TestCheckReturnsDegradedWhenOneDown(t *testing.T) {
	c := New(failingEmbedder{}, connectedVector(t), "v1")
	status, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OverallDegraded, status.Status)
	assert.Equal(t, StatusDown, status.Dependencies.EmbeddingEngine.Status)
}

func TestCheckReturnsUnhealthyWhenBothDown(t *testing.T) {
	c := New(failingEmbedder{}, failingVectorStore{}, "v1")
	status, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OverallUnhealthy, status.Status)
}

func TestMissingSentinelCollectionCountsAsUp(t *testing.T) {
	c := New(embed.NewStaticEmbedder(), notFoundVectorStore{}, "v1")
	status, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusUp, status.Dependencies.VectorStore.Status)
	assert.Equal(t, OverallHealthy, status.Status)
}

func TestCheckResultIsCached(t *testing.T) {
	embedder := failingEmbedder{}
	c := New(embedder, connectedVector(t), "v1")
	first, err := c.Check(context.Background())
	require.NoError(t, err)

	c.Vector = failingVectorStore{}
	second, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
}
