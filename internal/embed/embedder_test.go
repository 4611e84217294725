package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

func TestEmbedBatchReturnsVectorPerText(t *testing.T) {
	e := NewStaticEmbedder()
	vecs, err := EmbedBatch(context.Background(), e, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], StaticDimensions)
	assert.Len(t, vecs[1], StaticDimensions)
}

func TestEmbedBatchBackendFailureIsBackendUnavailable(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Dispose())

	_, err := EmbedBatch(context.Background(), e, []string{"alpha"})
	require.Error(t, err)
	assert.Equal(t, errkit.KindBackendUnavailable, errkit.KindOf(err))
}

func TestEmbedBatchCancelledContextIsCancelledKind(t *testing.T) {
	e := NewStaticEmbedder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EmbedBatch(ctx, e, []string{"alpha"})
	require.Error(t, err)
	assert.Equal(t, errkit.KindCancelled, errkit.KindOf(err))
}
