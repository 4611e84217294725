package errkit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(KindInternal, nil, "whatever"))
}

func TestIsMatchesByKind(t *testing.T) {
	a := New(KindNotFound, "project missing")
	b := New(KindNotFound, "different message, same kind")
	assert.True(t, errors.Is(a, b))

	c := New(KindInternal, "project missing")
	assert.False(t, errors.Is(a, c))
}

func TestKindOfUnwrapsChain(t *testing.T) {
	root := New(KindBackendUnavailable, "vector store down")
	wrapped := fmt.Errorf("context: %w", root)
	require.Error(t, wrapped)
	assert.Equal(t, KindBackendUnavailable, KindOf(wrapped))
}

func TestWithDataChaining(t *testing.T) {
	err := New(KindInvalidParams, "bad input").WithData("field", "rootPath")
	assert.Equal(t, "rootPath", err.Data["field"])
}
