package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/lang"
	"github.com/windschord/context-mcp-sub001/internal/symbol"
)

func TestBuildEmptySourceYieldsNoChunks(t *testing.T) {
	assert.Nil(t, Build("f.go", nil, lang.Go, nil, Options{}))
}

func TestBuildSymbolAnchoredChunkIdIsStable(t *testing.T) {
	source := []byte("package main\n\nfunc greet(name string) string {\n\treturn name\n}\n")
	syms := []*symbol.Symbol{{
		Name:     "greet",
		Type:     symbol.Function,
		Location: symbol.Location{StartLine: 2, EndLine: 4},
	}}

	chunks := Build("greeter.go", source, lang.Go, syms, Options{ProjectID: "p1"})
	require.Len(t, chunks, 2)
	assert.Equal(t, "greeter.go:2", chunks[0].ID)
	assert.Equal(t, "greet", chunks[0].Metadata.SymbolName)
	assert.Contains(t, chunks[0].Text, "return name")
	assert.Contains(t, chunks[0].Tokens, "greet")
}

func TestBuildMemberChunksInheritOwnerName(t *testing.T) {
	source := []byte(strings.Repeat("x\n", 2) + "type Widget struct{}\n\nfunc (w Widget) Greet() string {\n\treturn \"\"\n}\n")
	owner := &symbol.Symbol{
		Name:     "Widget",
		Type:     symbol.Struct,
		Location: symbol.Location{StartLine: 2, EndLine: 2},
		Members: []*symbol.Symbol{{
			Name:     "Greet",
			Type:     symbol.Method,
			Location: symbol.Location{StartLine: 4, EndLine: 6},
		}},
	}

	chunks := Build("widget.go", source, lang.Go, []*symbol.Symbol{owner}, Options{})
	require.Len(t, chunks, 3)

	var memberChunk *Chunk
	for _, c := range chunks {
		if c.Metadata.SymbolType == string(symbol.Method) {
			memberChunk = c
		}
	}
	require.NotNil(t, memberChunk)
	assert.Equal(t, "Widget", memberChunk.Metadata.SymbolName)
}

func TestBuildFallsBackToSlidingWindowForGaps(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "line"
	}
	source := []byte(strings.Join(lines, "\n"))

	syms := []*symbol.Symbol{{
		Name:     "f",
		Type:     symbol.Function,
		Location: symbol.Location{StartLine: 0, EndLine: 2},
	}}

	chunks := Build("big.go", source, lang.Go, syms, Options{WindowLines: 10})
	require.Greater(t, len(chunks), 1)
}

func TestBuildMarkdownAlwaysSlidingWindow(t *testing.T) {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = "text"
	}
	source := []byte(strings.Join(lines, "\n"))

	chunks := Build("README.md", source, lang.Markdown, nil, Options{WindowLines: 10})
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Empty(t, c.Metadata.SymbolName)
	}
}

func TestFingerprintStableForIdenticalText(t *testing.T) {
	c1 := &Chunk{Text: "same"}
	c2 := &Chunk{Text: "same"}
	assert.Equal(t, Fingerprint(c1), Fingerprint(c2))
}

func TestFingerprintDiffersForDifferentText(t *testing.T) {
	c1 := &Chunk{Text: "a"}
	c2 := &Chunk{Text: "b"}
	assert.NotEqual(t, Fingerprint(c1), Fingerprint(c2))
}
