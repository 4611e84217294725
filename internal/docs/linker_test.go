package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRelatedScoreFilePathReference(t *testing.T) {
	src := []byte("See `src/widget.go` for details.\n")
	doc, err := Parse(src)
	require.NoError(t, err)

	files := []CodeFile{
		{Path: "src/widget.go", Source: []byte("package widget\n")},
		{Path: "src/other.go", Source: []byte("package other\n")},
	}

	matches := CalculateRelatedScore(doc, "docs/guide.md", "/repo", []CodeFile{
		{Path: files[0].Path, Source: files[0].Source},
		{Path: files[1].Path, Source: files[1].Source},
	})

	require.NotEmpty(t, matches)
	assert.Equal(t, "src/widget.go", matches[0].FilePath)
	assert.Contains(t, matches[0].Reasons, "file_path_reference")
}

func TestCalculateRelatedScoreSymbolReference(t *testing.T) {
	doc, err := Parse([]byte("Call `greet` to say hello.\n"))
	require.NoError(t, err)

	matches := CalculateRelatedScore(doc, "docs/guide.md", "/repo", []CodeFile{
		{Path: "src/greeter.go", Symbols: []string{"greet"}},
		{Path: "src/other.go", Symbols: []string{"unrelated"}},
	})

	require.NotEmpty(t, matches)
	assert.Equal(t, "src/greeter.go", matches[0].FilePath)
}

func TestCalculateRelatedScoreCodeSimilarity(t *testing.T) {
	doc, err := Parse([]byte("```go\nfunc greet(name string) string {\n  return name\n}\n```\n"))
	require.NoError(t, err)

	matches := CalculateRelatedScore(doc, "docs/guide.md", "/repo", []CodeFile{
		{Path: "src/greeter.go", Source: []byte("func greet(name string) string {\n  return name\n}\n")},
		{Path: "src/unrelated.go", Source: []byte("package other\n\nconst x = 1\n")},
	})

	require.NotEmpty(t, matches)
	assert.Equal(t, "src/greeter.go", matches[0].FilePath)
	assert.Contains(t, matches[0].Reasons, "code_similarity")
}

func TestCalculateRelatedScoreNoMatchIsExcluded(t *testing.T) {
	doc, err := Parse([]byte("Nothing relevant here.\n"))
	require.NoError(t, err)

	matches := CalculateRelatedScore(doc, "docs/guide.md", "/repo", []CodeFile{
		{Path: "src/other.go", Source: []byte("package other\n")},
	})
	assert.Empty(t, matches)
}

func TestCalculateRelatedScoreTiesBrokenByPath(t *testing.T) {
	doc, err := Parse([]byte("Call `a` and `b`.\n"))
	require.NoError(t, err)

	matches := CalculateRelatedScore(doc, "docs/guide.md", "/repo", []CodeFile{
		{Path: "z.go", Symbols: []string{"a"}},
		{Path: "a.go", Symbols: []string{"b"}},
	})
	require.Len(t, matches, 2)
	assert.Equal(t, "a.go", matches[0].FilePath)
}
