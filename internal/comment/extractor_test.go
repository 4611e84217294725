package comment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/lang"
)

func parseSrc(t *testing.T, src string, l lang.Language) *lang.Tree {
	t.Helper()
	p := lang.NewParser()
	defer p.Close()
	tree, err := p.Parse(context.Background(), []byte(src), l)
	require.NoError(t, err)
	return tree
}

func TestJSDocWithTagsAssociatesToFunction(t *testing.T) {
	src := "/**\n * @param x - First\n * @returns y\n */\nfunction f(x){}\n"
	tree := parseSrc(t, src, lang.TypeScript)
	res, err := Extract(tree, []byte(src), []SymbolRef{{Name: "f", StartLine: 4}})
	require.NoError(t, err)
	require.Len(t, res.Comments, 1)

	c := res.Comments[0]
	assert.Equal(t, DocComment, c.Type)
	assert.Equal(t, "f", c.AssociatedSymbol)

	names := map[string]bool{}
	for _, tag := range c.Tags {
		names[tag.Name] = true
	}
	assert.True(t, names["param"])
	assert.True(t, names["returns"])
}

func TestMarkerDetection(t *testing.T) {
	src := "// TODO: fix this later\nfunc f() {}\n"
	tree := parseSrc(t, src, lang.Go)
	res, err := Extract(tree, []byte(src), nil)
	require.NoError(t, err)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, MarkerTODO, res.Comments[0].Marker)
}

func TestRustDocCommentLinesAreMerged(t *testing.T) {
	src := "/// First line\n/// Second line\nfn f() {}\n"
	tree := parseSrc(t, src, lang.Rust)
	res, err := Extract(tree, []byte(src), nil)
	require.NoError(t, err)
	require.Len(t, res.Comments, 1)
	assert.Contains(t, res.Comments[0].Content, "First line")
	assert.Contains(t, res.Comments[0].Content, "Second line")
}

func TestUnattributedCommentBeyondThreeLines(t *testing.T) {
	src := "/** orphaned */\n\n\n\n\nfunc f() {}\n"
	tree := parseSrc(t, src, lang.Go)
	res, err := Extract(tree, []byte(src), []SymbolRef{{Name: "f", StartLine: 5}})
	require.NoError(t, err)
	require.Len(t, res.Comments, 1)
	assert.Empty(t, res.Comments[0].AssociatedSymbol)
}

func TestPythonDocstringAssociatesToOwner(t *testing.T) {
	src := "def greet(name):\n    \"\"\"Say hello.\n\n    Args:\n        name: who to greet\n    \"\"\"\n    return name\n"
	tree := parseSrc(t, src, lang.Python)
	res, err := Extract(tree, []byte(src), nil)
	require.NoError(t, err)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "greet", res.Comments[0].AssociatedSymbol)
	require.Len(t, res.Comments[0].Tags, 1)
	assert.Equal(t, "Args", res.Comments[0].Tags[0].Name)
}

func TestNilTreeFails(t *testing.T) {
	_, err := Extract(nil, nil, nil)
	assert.Error(t, err)
}

func TestEmptyCommentIsDropped(t *testing.T) {
	src := "//\nfunc f() {}\n"
	tree := parseSrc(t, src, lang.Go)
	res, err := Extract(tree, []byte(src), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Comments)
}
