// Package config loads and validates the configuration record consumed by
// the indexing core, per spec §6: deployment mode, vector-store backend
// selection, embedding provider, privacy policy, and hybrid-search weights.
// Configuration file discovery, setup wizards, and preset generation are
// explicitly out of scope; callers hand the core an already-loaded Config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/search"
)

// Mode selects whether external network calls are permissible at all.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

// DefaultEmbedderConcurrency is how many embed batches run concurrently
// when a config doesn't set indexing.embedderConcurrency.
const DefaultEmbedderConcurrency = 4

// Config is the complete, validated configuration record.
type Config struct {
	Mode        Mode              `yaml:"mode"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Privacy     PrivacyConfig     `yaml:"privacy"`
	Search      SearchConfig      `yaml:"search"`
	Indexing    IndexingConfig    `yaml:"indexing"`
}

// VectorStoreConfig selects the VectorStore backend and its backend-specific
// settings. Config is left untyped since its shape is backend-dependent.
type VectorStoreConfig struct {
	Backend string         `yaml:"backend"`
	Config  map[string]any `yaml:"config"`
}

// EmbeddingConfig selects the Embedder backend.
type EmbeddingConfig struct {
	Provider string         `yaml:"provider"`
	Model    string         `yaml:"model"`
	APIKey   string         `yaml:"apiKey"`
	Local    map[string]any `yaml:"local"`
}

// PrivacyConfig governs whether a cloud embedder or vector store may be used.
type PrivacyConfig struct {
	BlockExternalCalls bool `yaml:"blockExternalCalls"`
}

// SearchConfig carries the hybrid-search fusion weights. BM25Weight and
// VectorWeight must sum to 1.0.
type SearchConfig struct {
	BM25Weight   float64 `yaml:"bm25Weight"`
	VectorWeight float64 `yaml:"vectorWeight"`
}

// Weights adapts SearchConfig into the search package's Weights type.
func (s SearchConfig) Weights() search.Weights {
	return search.Weights{BM25: s.BM25Weight, Vector: s.VectorWeight}
}

// IndexingConfig scopes which files the FileScanner and parsers consider.
type IndexingConfig struct {
	Languages        []string `yaml:"languages"`
	ExcludePatterns  []string `yaml:"excludePatterns"`
	IncludeDocuments bool     `yaml:"includeDocuments"`

	// EmbedderConcurrency bounds how many embed batches run concurrently
	// during indexing, per spec §5's "embedder pool sized to the
	// embedder's concurrency budget".
	EmbedderConcurrency int `yaml:"embedderConcurrency"`
}

// Default returns a Config with sensible local-mode defaults: an embedded
// HNSW vector store, the native BM25 backend implied by an empty local
// provider selection, and the spec's default fusion weights.
func Default() *Config {
	return &Config{
		Mode: ModeLocal,
		VectorStore: VectorStoreConfig{
			Backend: "hnsw",
		},
		Embedding: EmbeddingConfig{
			Provider: "static",
		},
		Privacy: PrivacyConfig{
			BlockExternalCalls: true,
		},
		Search: SearchConfig{
			BM25Weight:   search.DefaultWeights.BM25,
			VectorWeight: search.DefaultWeights.Vector,
		},
		Indexing: IndexingConfig{
			IncludeDocuments:    true,
			EmbedderConcurrency: DefaultEmbedderConcurrency,
		},
	}
}

// Load reads a YAML configuration file at path, merges it over Default,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInvalidParams, err, fmt.Sprintf("reading config file %s", path))
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errkit.Wrap(errkit.KindInvalidParams, err, fmt.Sprintf("parsing config file %s", path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internal consistency: the mode/provider/backend values
// are recognized, the fusion weights sum to 1.0, and a local-mode
// deployment that blocks external calls is not paired with a cloud
// embedding provider or vector-store backend.
func (c *Config) Validate() error {
	if c.Mode != ModeLocal && c.Mode != ModeCloud {
		return errkit.New(errkit.KindConfigValidation, "mode must be 'local' or 'cloud'").
			WithData("mode", c.Mode)
	}

	if err := c.Search.Weights().Validate(); err != nil {
		return err
	}

	if c.Mode == ModeLocal && c.Privacy.BlockExternalCalls {
		if isCloudProvider(c.Embedding.Provider) {
			return errkit.New(errkit.KindConfigValidation, "local mode with blockExternalCalls set cannot use a cloud embedding provider").
				WithData("provider", c.Embedding.Provider)
		}
		if isCloudBackend(c.VectorStore.Backend) {
			return errkit.New(errkit.KindConfigValidation, "local mode with blockExternalCalls set cannot use a cloud vector-store backend").
				WithData("backend", c.VectorStore.Backend)
		}
	}

	return nil
}

var cloudEmbeddingProviders = map[string]bool{
	"openai":    true,
	"cohere":    true,
	"voyageai":  true,
	"anthropic": true,
}

func isCloudProvider(provider string) bool {
	return cloudEmbeddingProviders[provider]
}

var cloudVectorBackends = map[string]bool{
	"milvus":   true,
	"zilliz":   true,
	"qdrant":   true,
	"chroma":   true,
	"pinecone": true,
}

func isCloudBackend(backend string) bool {
	return cloudVectorBackends[backend]
}
