package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ModeLocal, cfg.Mode)
}

func TestLoadOverridesDefaultsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: local
vectorStore:
  backend: hnsw
embedding:
  provider: static
  model: static-v1
search:
  bm25Weight: 0.5
  vectorWeight: 0.5
indexing:
  languages: [go, python]
  includeDocuments: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "static-v1", cfg.Embedding.Model)
	assert.Equal(t, []string{"go", "python"}, cfg.Indexing.Languages)
	assert.False(t, cfg.Indexing.IncludeDocuments)
	assert.InDelta(t, 0.5, cfg.Search.BM25Weight, 1e-9)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [unterminated"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errkit.KindInvalidParams, errkit.KindOf(err))
}

func TestValidateRejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := Default()
	cfg.Search.BM25Weight = 0.5
	cfg.Search.VectorWeight = 0.8

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errkit.KindConfigValidation, errkit.KindOf(err))
}

func TestValidateRejectsCloudProviderUnderLocalBlockedMode(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeLocal
	cfg.Privacy.BlockExternalCalls = true
	cfg.Embedding.Provider = "openai"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errkit.KindConfigValidation, errkit.KindOf(err))
}

func TestValidateAllowsCloudProviderWhenExternalCallsUnblocked(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeLocal
	cfg.Privacy.BlockExternalCalls = false
	cfg.Embedding.Provider = "openai"

	assert.NoError(t, cfg.Validate())
}

func TestSearchConfigWeightsAdaptsToSearchPackage(t *testing.T) {
	cfg := Default()
	w := cfg.Search.Weights()
	assert.Equal(t, cfg.Search.BM25Weight, w.BM25)
	assert.Equal(t, cfg.Search.VectorWeight, w.Vector)
}
