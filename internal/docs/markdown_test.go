package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeadingsCodeBlocksAndLinks(t *testing.T) {
	src := []byte("# Title\n\nSee `src/widget.go` for details.\n\n```go\nfunc greet() {}\n```\n\n[docs](https://example.com/readme)\n[local](./guide.md)\n\n![logo](./logo.png)\n")

	doc, err := Parse(src)
	require.NoError(t, err)

	require.Len(t, doc.Headings, 1)
	assert.Equal(t, "Title", doc.Headings[0].Text)

	require.Len(t, doc.CodeBlocks, 1)
	assert.Equal(t, "go", doc.CodeBlocks[0].Language)
	assert.Contains(t, doc.CodeBlocks[0].Code, "func greet")

	require.Len(t, doc.Links, 2)
	var external, internal bool
	for _, l := range doc.Links {
		if l.Type == LinkExternal {
			external = true
		}
		if l.Type == LinkInternal {
			internal = true
		}
	}
	assert.True(t, external)
	assert.True(t, internal)

	require.Len(t, doc.Images, 1)
	assert.Equal(t, "logo", doc.Images[0].Alt)

	require.Len(t, doc.FilePaths, 1)
	assert.Equal(t, "src/widget.go", doc.FilePaths[0].Path)
}

func TestParseNilSourceFails(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestParseEmptySourceYieldsEmptyDocument(t *testing.T) {
	doc, err := Parse([]byte{})
	require.NoError(t, err)
	assert.Empty(t, doc.Headings)
	assert.Empty(t, doc.CodeBlocks)
}
