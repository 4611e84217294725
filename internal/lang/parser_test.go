package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyInputIsValid(t *testing.T) {
	p := NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte{}, Go)
	require.NoError(t, err)
	assert.NotNil(t, tree.Root)
	assert.False(t, tree.HasError)
}

func TestParseNilInputFails(t *testing.T) {
	p := NewParser()
	defer p.Close()

	_, err := p.Parse(context.Background(), nil, Go)
	assert.Error(t, err)
}

func TestParseMalformedInputStillReturnsTree(t *testing.T) {
	p := NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte("func ( {"), Go)
	require.NoError(t, err)
	assert.True(t, tree.HasError)
}

func TestParseUnknownLanguageYieldsEmptyTree(t *testing.T) {
	p := NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte("anything"), PlatformIO)
	require.NoError(t, err)
	assert.False(t, tree.HasError)
	assert.Empty(t, tree.Root.Children)
}

func TestWalkEarlyTermination(t *testing.T) {
	p := NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte("func f() { g() }"), Go)
	require.NoError(t, err)

	visited := 0
	tree.Root.Walk(func(n *Node) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}
