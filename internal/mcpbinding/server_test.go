package mcpbinding

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/embed"
	"github.com/windschord/context-mcp-sub001/internal/health"
	"github.com/windschord/context-mcp-sub001/internal/index"
	"github.com/windschord/context-mcp-sub001/internal/scanner"
	"github.com/windschord/context-mcp-sub001/internal/search"
	"github.com/windschord/context-mcp-sub001/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	vector := store.NewHNSWVectorStore()
	require.NoError(t, vector.Connect(context.Background(), store.Config{}))

	embedder := embed.NewStaticEmbedder()
	metadata, err := store.NewSQLiteMetadataStore("")
	require.NoError(t, err)
	sc, err := scanner.New()
	require.NoError(t, err)

	svc := index.New(vector, embedder, metadata, sc)
	checker := health.New(embedder, vector, "test")

	s := NewServer(svc, metadata, embedder, checker, search.DefaultWeights, "test")
	t.Cleanup(s.stopWatchers)
	return s
}

func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(
		"package main\n\nfunc Greet(name string) string {\n\treturn \"hello \" + name\n}\n",
	), 0o644))
	return root
}

func TestHandleIndexProjectAndSearchCodeRoundTrip(t *testing.T) {
	s := newTestServer(t)
	root := writeFixture(t)
	ctx := context.Background()

	_, indexOut, err := s.handleIndexProject(ctx, nil, IndexProjectInput{RootPath: root, ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", indexOut.ProjectID)
	assert.Equal(t, 1, indexOut.IndexedFiles)

	_, searchOut, err := s.handleSearchCode(ctx, nil, SearchCodeInput{Query: "Greet", ProjectID: "p1"})
	require.NoError(t, err)
	require.NotEmpty(t, searchOut.Results)
	assert.Contains(t, searchOut.Results[0].Snippet, "Greet")
}

func TestHandleSearchCodeRequiresProjectIDWhenAmbiguous(t *testing.T) {
	s := newTestServer(t)
	root1 := writeFixture(t)
	root2 := writeFixture(t)
	ctx := context.Background()

	_, _, err := s.handleIndexProject(ctx, nil, IndexProjectInput{RootPath: root1, ProjectID: "p1"})
	require.NoError(t, err)
	_, _, err = s.handleIndexProject(ctx, nil, IndexProjectInput{RootPath: root2, ProjectID: "p2"})
	require.NoError(t, err)

	_, _, err = s.handleSearchCode(ctx, nil, SearchCodeInput{Query: "Greet"})
	require.Error(t, err)
}

func TestHandleClearIndexRequiresConfirm(t *testing.T) {
	s := newTestServer(t)
	root := writeFixture(t)
	ctx := context.Background()

	_, _, err := s.handleIndexProject(ctx, nil, IndexProjectInput{RootPath: root, ProjectID: "p1"})
	require.NoError(t, err)

	_, out, err := s.handleClearIndex(ctx, nil, ClearIndexInput{ProjectID: "p1"})
	require.NoError(t, err)
	assert.False(t, out.Success)

	_, out, err = s.handleClearIndex(ctx, nil, ClearIndexInput{ProjectID: "p1", Confirm: true})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, []string{"p1"}, out.ClearedProjects)
}

func TestHandleGetIndexStatusReportsIndexedProject(t *testing.T) {
	s := newTestServer(t)
	root := writeFixture(t)
	ctx := context.Background()

	_, _, err := s.handleIndexProject(ctx, nil, IndexProjectInput{RootPath: root, ProjectID: "p1"})
	require.NoError(t, err)

	_, out, err := s.handleGetIndexStatus(ctx, nil, GetIndexStatusInput{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, out.Projects, 1)
	assert.Equal(t, "p1", out.Projects[0].ProjectID)
	assert.Equal(t, string(index.StateIndexed), out.Projects[0].Status)
}

func TestHandleHealthCheckReportsHealthy(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleHealthCheck(context.Background(), nil, HealthCheckInput{})
	require.NoError(t, err)
	assert.Equal(t, string(health.OverallHealthy), out.Status)
}
