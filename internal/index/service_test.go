package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/embed"
	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/scanner"
	"github.com/windschord/context-mcp-sub001/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	vector := store.NewHNSWVectorStore()
	require.NoError(t, vector.Connect(context.Background(), store.Config{}))

	embedder := embed.NewStaticEmbedder()
	metadata, err := store.NewSQLiteMetadataStore("")
	require.NoError(t, err)
	sc, err := scanner.New()
	require.NoError(t, err)

	svc := New(vector, embedder, metadata, sc)
	svc.WorkerCount = 2
	return svc
}

func writeProjectFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(
		"package main\n\n// Greet says hello to name.\nfunc Greet(name string) string {\n\treturn \"hello \" + name\n}\n",
	), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte(
		"# Project\n\nSee greeter.go for the Greet function.\n",
	), 0o644))
	return root
}

func TestIndexProjectIndexesFilesAndReportsStats(t *testing.T) {
	svc := newTestService(t)
	root := writeProjectFixture(t)

	var phases []Phase
	result, err := svc.IndexProject(context.Background(), "p1", root, ProjectOptions{}, func(p Progress) {
		phases = append(phases, p.Phase)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	assert.Empty(t, result.Errors)
	assert.Contains(t, phases, PhaseScan)
	assert.Contains(t, phases, PhaseParse)
	assert.Contains(t, phases, PhaseEmbed)
	assert.Contains(t, phases, PhasePersist)

	stats, err := svc.GetIndexStats("p1")
	require.NoError(t, err)
	assert.Equal(t, StateIndexed, stats.Status)
	assert.Greater(t, stats.TotalVectors, 0)
	assert.Equal(t, 1, stats.TotalDocuments)
}

func TestIndexProjectConcurrentRunFailsAlreadyRunning(t *testing.T) {
	svc := newTestService(t)
	tp := svc.tracked("p1")
	tp.mu.Lock()
	tp.state = StateIndexing
	tp.mu.Unlock()

	_, err := svc.IndexProject(context.Background(), "p1", t.TempDir(), ProjectOptions{}, nil)
	require.Error(t, err)
	assert.Equal(t, errkit.KindAlreadyRunning, errkit.KindOf(err))
}

func TestClearIndexResetsProjectState(t *testing.T) {
	svc := newTestService(t)
	root := writeProjectFixture(t)

	_, err := svc.IndexProject(context.Background(), "p1", root, ProjectOptions{}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.ClearIndex(context.Background(), "p1"))

	stats, err := svc.GetIndexStats("p1")
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestDeleteFileRemovesTrackedChunks(t *testing.T) {
	svc := newTestService(t)
	root := writeProjectFixture(t)

	_, err := svc.IndexProject(context.Background(), "p1", root, ProjectOptions{}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(context.Background(), "p1", root, "greeter.go"))

	_, err = svc.Metadata.GetFile(context.Background(), "p1", "greeter.go")
	require.Error(t, err)
	assert.Equal(t, errkit.KindNotFound, errkit.KindOf(err))
}

func TestIndexProjectCancelledContextReturnsCancelledKind(t *testing.T) {
	svc := newTestService(t)
	root := writeProjectFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.IndexProject(ctx, "p1", root, ProjectOptions{}, nil)
	require.Error(t, err)
	assert.Equal(t, errkit.KindCancelled, errkit.KindOf(err))
}

// countingEmbedder wraps an Embedder and counts Embed calls, so a test can
// assert that unchanged chunks were not re-embedded.
type countingEmbedder struct {
	embed.Embedder
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.Embedder.Embed(ctx, text)
}

func TestUpdateFileSkipsReembeddingUnchangedChunks(t *testing.T) {
	vector := store.NewHNSWVectorStore()
	require.NoError(t, vector.Connect(context.Background(), store.Config{}))
	metadata, err := store.NewSQLiteMetadataStore("")
	require.NoError(t, err)
	sc, err := scanner.New()
	require.NoError(t, err)

	counting := &countingEmbedder{Embedder: embed.NewStaticEmbedder()}
	svc := New(vector, counting, metadata, sc)
	svc.WorkerCount = 2

	root := writeProjectFixture(t)
	_, err = svc.IndexProject(context.Background(), "p1", root, ProjectOptions{}, nil)
	require.NoError(t, err)

	before := counting.calls
	require.NoError(t, svc.UpdateFile(context.Background(), "p1", root, "greeter.go"))
	assert.Equal(t, before, counting.calls, "re-indexing byte-identical content should not re-embed any chunk")

	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(
		"package main\n\n// Greet says hello to name, loudly.\nfunc Greet(name string) string {\n\treturn \"HELLO \" + name\n}\n",
	), 0o644))
	require.NoError(t, svc.UpdateFile(context.Background(), "p1", root, "greeter.go"))
	assert.Greater(t, counting.calls, before, "changed chunk content should be re-embedded")
}
