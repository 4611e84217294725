// Package cmd provides the CLI commands for codeindexd.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/windschord/context-mcp-sub001/internal/config"
	"github.com/windschord/context-mcp-sub001/internal/embed"
	"github.com/windschord/context-mcp-sub001/internal/health"
	"github.com/windschord/context-mcp-sub001/internal/index"
	"github.com/windschord/context-mcp-sub001/internal/mcpbinding"
	"github.com/windschord/context-mcp-sub001/internal/scanner"
	"github.com/windschord/context-mcp-sub001/internal/store"
	"github.com/windschord/context-mcp-sub001/pkg/version"
)

var configPath string

// NewRootCmd creates the root command for codeindexd.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "codeindexd",
		Short:   "Local-first hybrid code search indexer and MCP server",
		Version: version.Version,
	}
	cmd.SetVersionTemplate(version.String() + "\n")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a codeindexd config YAML file (defaults omitted)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newHealthCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// loadConfig reads --config if given, otherwise returns defaults.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// app bundles every capability the CLI commands share.
type app struct {
	Config   *config.Config
	Embedder embed.Embedder
	Vector   store.VectorStore
	Metadata store.MetadataStore
	Scanner  *scanner.Scanner
	Indexing *index.Service
	Health   *health.Checker
	MCP      *mcpbinding.Server
}

// dataDir is where per-process state (the SQLite metadata store) lives when
// no explicit path is configured.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".context-mcp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// bootstrap builds every capability from cfg and wires them into the
// IndexingService, HealthChecker, and MCP binding, following the same
// capability-assembly order regardless of which command uses it.
func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	var embedder embed.Embedder = embed.NewStaticEmbedder()
	embedder = embed.NewCachedEmbedder(embedder, embed.DefaultCacheSize)
	if err := embedder.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	vector := store.NewHNSWVectorStore()
	if err := vector.Connect(ctx, store.Config{}); err != nil {
		return nil, fmt.Errorf("connect vector store: %w", err)
	}

	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	metadata, err := store.NewSQLiteMetadataStore(filepath.Join(dir, "metadata.db"))
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	sc, err := scanner.New()
	if err != nil {
		return nil, fmt.Errorf("build scanner: %w", err)
	}

	indexing := index.New(vector, embedder, metadata, sc)
	if cfg.Indexing.EmbedderConcurrency > 0 {
		indexing.EmbedderConcurrency = cfg.Indexing.EmbedderConcurrency
	}
	checker := health.New(embedder, vector, version.Version)
	mcpServer := mcpbinding.NewServer(indexing, metadata, embedder, checker, cfg.Search.Weights(), version.Version)

	return &app{
		Config:   cfg,
		Embedder: embedder,
		Vector:   vector,
		Metadata: metadata,
		Scanner:  sc,
		Indexing: indexing,
		Health:   checker,
		MCP:      mcpServer,
	}, nil
}

// close releases every capability a bootstrap holds.
func (a *app) close() {
	if err := a.Embedder.Dispose(); err != nil {
		slog.Warn("embedder dispose failed", slog.String("error", err.Error()))
	}
	if err := a.Vector.Disconnect(context.Background()); err != nil {
		slog.Warn("vector store disconnect failed", slog.String("error", err.Error()))
	}
	if err := a.Metadata.Close(); err != nil {
		slog.Warn("metadata store close failed", slog.String("error", err.Error()))
	}
}
