package mcpbinding

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/windschord/context-mcp-sub001/internal/embed"
	"github.com/windschord/context-mcp-sub001/internal/health"
	"github.com/windschord/context-mcp-sub001/internal/index"
	"github.com/windschord/context-mcp-sub001/internal/search"
	"github.com/windschord/context-mcp-sub001/internal/store"
	"github.com/windschord/context-mcp-sub001/internal/watcher"
)

// Server bridges the indexing core's capabilities onto the MCP tool
// surface defined in spec §6.
type Server struct {
	mcp      *mcp.Server
	Indexing *index.Service
	Metadata store.MetadataStore
	Embedder embed.Embedder
	Health   *health.Checker
	Weights  search.Weights
	Logger   *slog.Logger

	watchersMu sync.Mutex
	watchers   map[string]*projectWatch
}

type projectWatch struct {
	w      *watcher.Watcher
	cancel context.CancelFunc
}

// NewServer wires an mcp.Server around the given capabilities and registers
// the five tools.
func NewServer(indexing *index.Service, metadata store.MetadataStore, embedder embed.Embedder, checker *health.Checker, weights search.Weights, version string) *Server {
	s := &Server{
		Indexing: indexing,
		Metadata: metadata,
		Embedder: embedder,
		Health:   checker,
		Weights:  weights,
		Logger:   slog.Default(),
		watchers: make(map[string]*projectWatch),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "codeindexd", Version: version}, nil)
	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server, for callers that need to
// attach a transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// The Call* methods below invoke the same handlers the MCP tools dispatch
// to, without a live *mcp.CallToolRequest, so the CLI subcommands can reuse
// one implementation of each tool's semantics.

// CallSearchCode runs search_code's handler directly.
func (s *Server) CallSearchCode(ctx context.Context, input SearchCodeInput) (*mcp.CallToolResult, SearchCodeOutput, error) {
	return s.handleSearchCode(ctx, &mcp.CallToolRequest{}, input)
}

// CallGetIndexStatus runs get_index_status's handler directly.
func (s *Server) CallGetIndexStatus(ctx context.Context, input GetIndexStatusInput) (GetIndexStatusOutput, error) {
	_, out, err := s.handleGetIndexStatus(ctx, &mcp.CallToolRequest{}, input)
	return out, err
}

// CallClearIndex runs clear_index's handler directly.
func (s *Server) CallClearIndex(ctx context.Context, input ClearIndexInput) (ClearIndexOutput, error) {
	_, out, err := s.handleClearIndex(ctx, &mcp.CallToolRequest{}, input)
	return out, err
}

// CallHealthCheck runs health_check's handler directly.
func (s *Server) CallHealthCheck(ctx context.Context) (HealthCheckOutput, error) {
	_, out, err := s.handleHealthCheck(ctx, &mcp.CallToolRequest{}, HealthCheckInput{})
	return out, err
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.Logger.Info("starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	s.stopWatchers()
	if err != nil && err != context.Canceled {
		s.Logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.Logger.Info("MCP server stopped")
	return nil
}

// rewatchProject (re)starts a FileWatcher on rootPath so projectID stays
// incrementally up to date for the life of this server process. Failure to
// start a watcher is logged and non-fatal: index_project already succeeded.
func (s *Server) rewatchProject(projectID, rootPath string) {
	s.watchersMu.Lock()
	defer s.watchersMu.Unlock()

	if existing, ok := s.watchers[projectID]; ok {
		existing.cancel()
		delete(s.watchers, projectID)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	w, err := s.Indexing.WatchProject(watchCtx, projectID, rootPath, watcher.Options{RespectIgnoreFiles: true})
	if err != nil {
		s.Logger.Warn("failed to start file watcher", slog.String("projectId", projectID), slog.String("error", err.Error()))
		cancel()
		return
	}
	s.watchers[projectID] = &projectWatch{w: w, cancel: cancel}
}

// stopWatcher cancels projectID's watcher, if one is running.
func (s *Server) stopWatcher(projectID string) {
	s.watchersMu.Lock()
	defer s.watchersMu.Unlock()
	if pw, ok := s.watchers[projectID]; ok {
		pw.cancel()
		delete(s.watchers, projectID)
	}
}

// stopWatchers cancels every project watcher this server started.
func (s *Server) stopWatchers() {
	s.watchersMu.Lock()
	defer s.watchersMu.Unlock()
	for id, pw := range s.watchers {
		pw.cancel()
		delete(s.watchers, id)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_project",
		Description: "Index a project's source tree: scan, parse, chunk, embed, and persist into the vector store and BM25 index. Reports progress as it runs.",
	}, s.handleIndexProject)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Hybrid lexical+semantic search over an indexed project. Returns ranked chunks with file path, snippet, and symbol context.",
	}, s.handleSearchCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report indexing statistics for one project or every project tracked by this process.",
	}, s.handleGetIndexStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_index",
		Description: "Clear a project's (or every project's) vector store, BM25 index, and metadata. Requires confirm=true to actually mutate state.",
	}, s.handleClearIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "health_check",
		Description: "Probe the embedder and vector-store dependencies and report a composite health status.",
	}, s.handleHealthCheck)
}

// IndexProjectInput is index_project's input schema, per spec §6.
type IndexProjectInput struct {
	RootPath  string          `json:"rootPath" jsonschema:"absolute path to the project root"`
	ProjectID string          `json:"projectId,omitempty" jsonschema:"stable project identifier; defaults to rootPath when omitted"`
	Options   *IndexOptsInput `json:"options,omitempty" jsonschema:"optional scan overrides"`
}

// IndexOptsInput narrows a scan to a subset of files.
type IndexOptsInput struct {
	ExcludePatterns []string `json:"excludePatterns,omitempty"`
	Extensions      []string `json:"extensions,omitempty"`
}

// IndexProjectOutput is index_project's output schema.
type IndexProjectOutput struct {
	ProjectID    string   `json:"projectId"`
	IndexedFiles int      `json:"indexedFiles"`
	SkippedFiles int      `json:"skippedFiles"`
	Errors       []string `json:"errors"`
}

func (s *Server) handleIndexProject(ctx context.Context, req *mcp.CallToolRequest, input IndexProjectInput) (*mcp.CallToolResult, IndexProjectOutput, error) {
	if input.RootPath == "" {
		return nil, IndexProjectOutput{}, NewInvalidParamsError("rootPath is required")
	}
	projectID := input.ProjectID
	if projectID == "" {
		projectID = input.RootPath
	}

	var opts index.ProjectOptions
	if input.Options != nil {
		opts.ExcludePatterns = input.Options.ExcludePatterns
		opts.Extensions = input.Options.Extensions
	}

	result, err := s.Indexing.IndexProject(ctx, projectID, input.RootPath, opts, func(p index.Progress) {
		notifyProgress(ctx, req, p)
	})
	if err != nil {
		return nil, IndexProjectOutput{}, MapError(err)
	}

	s.rewatchProject(projectID, input.RootPath)

	return nil, IndexProjectOutput{
		ProjectID:    projectID,
		IndexedFiles: result.Indexed,
		SkippedFiles: result.Skipped,
		Errors:       result.Errors,
	}, nil
}

// notifyProgress best-effort forwards an indexing Progress as an MCP
// progress notification, per spec §6's "Emits progress notifications
// {progressToken, progress 0-100, total 100, message}". Requests that
// didn't ask for progress (no progress token) are silently skipped.
func notifyProgress(ctx context.Context, req *mcp.CallToolRequest, p index.Progress) {
	if req == nil || req.Params == nil || req.Session == nil {
		return
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return
	}
	_ = req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      float64(p.Percent),
		Total:         100,
		Message:       p.Message,
	})
}

// SearchCodeInput is search_code's input schema, per spec §6.
type SearchCodeInput struct {
	Query     string   `json:"query" jsonschema:"the search query"`
	ProjectID string   `json:"projectId,omitempty" jsonschema:"project to search; required if more than one project is indexed"`
	FileTypes []string `json:"fileTypes,omitempty" jsonschema:"extensions to restrict results to, with or without a leading dot"`
	Languages []string `json:"languages,omitempty" jsonschema:"languages to restrict results to"`
	TopK      int      `json:"topK,omitempty" jsonschema:"maximum results to return, default 10"`
}

// SearchResultOutput is one ranked hit.
type SearchResultOutput struct {
	FilePath   string            `json:"filePath"`
	Language   string            `json:"language"`
	Snippet    string            `json:"snippet"`
	Score      float32           `json:"score"`
	LineStart  int               `json:"lineStart"`
	LineEnd    int               `json:"lineEnd"`
	SymbolName string            `json:"symbolName,omitempty"`
	SymbolType string            `json:"symbolType,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchCodeOutput is search_code's output schema.
type SearchCodeOutput struct {
	Results      []SearchResultOutput `json:"results"`
	TotalResults int                  `json:"totalResults"`
	SearchTimeMs int64                `json:"searchTimeMs"`
}

func (s *Server) handleSearchCode(ctx context.Context, req *mcp.CallToolRequest, input SearchCodeInput) (*mcp.CallToolResult, SearchCodeOutput, error) {
	start := time.Now()
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchCodeOutput{}, NewInvalidParamsError("query is required")
	}

	projectID := input.ProjectID
	if projectID == "" {
		tracked := s.Indexing.ProjectIDs()
		if len(tracked) != 1 {
			return nil, SearchCodeOutput{}, NewInvalidParamsError("projectId is required when more than one project is indexed")
		}
		projectID = tracked[0]
	}

	project, err := s.Metadata.GetProject(ctx, projectID)
	if err != nil {
		return nil, SearchCodeOutput{}, MapError(err)
	}

	bm25, err := s.Indexing.ProjectBM25(projectID, project.RootPath)
	if err != nil {
		return nil, SearchCodeOutput{}, MapError(err)
	}

	engine, err := search.New(s.Indexing.Vector, bm25, s.Indexing.CollectionName, s.Weights)
	if err != nil {
		return nil, SearchCodeOutput{}, MapError(err)
	}

	topK := input.TopK
	if topK <= 0 {
		topK = 10
	}

	queryVector, embedErr := s.Embedder.Embed(ctx, input.Query)
	if embedErr != nil {
		s.Logger.Warn("search_code query embedding failed, falling back to bm25-only", slog.String("error", embedErr.Error()))
	}

	results, searchErr := engine.Search(ctx, input.Query, queryVector, topK, map[string]string{"projectId": projectID})
	if searchErr != nil {
		// Per spec §7: search errors surface as an empty result set with
		// searchTimeMs set, not a tool error.
		s.Logger.Error("search_code failed", slog.String("error", searchErr.Error()))
		return nil, SearchCodeOutput{SearchTimeMs: time.Since(start).Milliseconds()}, nil
	}

	fileTypeSet := normalizeFileTypes(input.FileTypes)
	languageSet := toSet(input.Languages)

	out := make([]SearchResultOutput, 0, len(results))
	for _, r := range results {
		path := r.Metadata["path"]
		language := r.Metadata["language"]
		if len(languageSet) > 0 && !languageSet[language] {
			continue
		}
		if len(fileTypeSet) > 0 && !fileTypeSet[strings.TrimPrefix(filepath.Ext(path), ".")] {
			continue
		}
		lineStart, _ := strconv.Atoi(r.Metadata["lineStart"])
		lineEnd, _ := strconv.Atoi(r.Metadata["lineEnd"])
		out = append(out, SearchResultOutput{
			FilePath:   path,
			Language:   language,
			Snippet:    readSnippet(project.RootPath, path, lineStart, lineEnd),
			Score:      r.Score,
			LineStart:  lineStart,
			LineEnd:    lineEnd,
			SymbolName: r.Metadata["symbolName"],
			SymbolType: r.Metadata["symbolType"],
			Metadata:   r.Metadata,
		})
	}

	return nil, SearchCodeOutput{
		Results:      out,
		TotalResults: len(out),
		SearchTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// readSnippet returns lines [lineStart, lineEnd] (1-indexed, inclusive) of
// rootPath/relPath, or "" if the file can't be read.
func readSnippet(rootPath, relPath string, lineStart, lineEnd int) string {
	if relPath == "" || lineStart <= 0 {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(rootPath, relPath))
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line < lineStart {
			continue
		}
		if line > lineEnd {
			break
		}
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
	}
	return buf.String()
}

func normalizeFileTypes(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	out := make(map[string]bool, len(types))
	for _, t := range types {
		out[strings.TrimPrefix(t, ".")] = true
	}
	return out
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

// GetIndexStatusInput is get_index_status's input schema.
type GetIndexStatusInput struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"restrict the report to a single project"`
}

// ProjectStatusOutput is one project's status entry.
type ProjectStatusOutput struct {
	ProjectID string             `json:"projectId"`
	RootPath  string             `json:"rootPath"`
	Stats     ProjectStatsOutput `json:"stats"`
	Status    string             `json:"status"`
	Errors    []string           `json:"errors,omitempty"`
}

// ProjectStatsOutput is the nested stats object, per spec §6.
type ProjectStatsOutput struct {
	TotalFiles     int    `json:"totalFiles"`
	IndexedFiles   int    `json:"indexedFiles"`
	TotalSymbols   int    `json:"totalSymbols"`
	TotalVectors   int    `json:"totalVectors"`
	TotalDocuments int    `json:"totalDocuments"`
	LastIndexedAt  string `json:"lastIndexedAt,omitempty"`
	IndexSize      int64  `json:"indexSize"`
}

// GetIndexStatusOutput is get_index_status's output schema.
type GetIndexStatusOutput struct {
	Projects []ProjectStatusOutput `json:"projects"`
}

func (s *Server) handleGetIndexStatus(ctx context.Context, req *mcp.CallToolRequest, input GetIndexStatusInput) (*mcp.CallToolResult, GetIndexStatusOutput, error) {
	ids := []string{input.ProjectID}
	if input.ProjectID == "" {
		ids = s.Indexing.ProjectIDs()
		sort.Strings(ids)
	}

	out := GetIndexStatusOutput{Projects: make([]ProjectStatusOutput, 0, len(ids))}
	for _, id := range ids {
		stats, err := s.Indexing.GetIndexStats(id)
		if err != nil {
			continue
		}
		rootPath := ""
		if project, err := s.Metadata.GetProject(ctx, id); err == nil {
			rootPath = project.RootPath
		}

		entry := ProjectStatusOutput{
			ProjectID: id,
			RootPath:  rootPath,
			Status:    string(stats.Status),
			Errors:    stats.Errors,
			Stats: ProjectStatsOutput{
				TotalFiles:     stats.TotalFiles,
				IndexedFiles:   stats.IndexedFiles,
				TotalSymbols:   stats.TotalSymbols,
				TotalVectors:   stats.TotalVectors,
				TotalDocuments: stats.TotalDocuments,
				IndexSize:      stats.IndexSize,
			},
		}
		if !stats.LastIndexedAt.IsZero() {
			entry.Stats.LastIndexedAt = stats.LastIndexedAt.Format(time.RFC3339)
		}
		out.Projects = append(out.Projects, entry)
	}
	return nil, out, nil
}

// ClearIndexInput is clear_index's input schema.
type ClearIndexInput struct {
	ProjectID string `json:"projectId,omitempty"`
	Confirm   bool   `json:"confirm,omitempty"`
}

// ClearIndexOutput is clear_index's output schema.
type ClearIndexOutput struct {
	Success         bool     `json:"success"`
	ClearedProjects []string `json:"clearedProjects"`
	Message         string   `json:"message"`
}

func (s *Server) handleClearIndex(ctx context.Context, req *mcp.CallToolRequest, input ClearIndexInput) (*mcp.CallToolResult, ClearIndexOutput, error) {
	if !input.Confirm {
		return nil, ClearIndexOutput{
			Success: false,
			Message: "pass confirm=true to clear the index; this is a no-op otherwise",
		}, nil
	}

	if input.ProjectID != "" {
		if err := s.Indexing.ClearIndex(ctx, input.ProjectID); err != nil {
			return nil, ClearIndexOutput{}, MapError(err)
		}
		s.stopWatcher(input.ProjectID)
		return nil, ClearIndexOutput{
			Success:         true,
			ClearedProjects: []string{input.ProjectID},
			Message:         "cleared project " + input.ProjectID,
		}, nil
	}

	ids := s.Indexing.ProjectIDs()
	sort.Strings(ids)
	if err := s.Indexing.ClearAllIndexes(ctx); err != nil {
		return nil, ClearIndexOutput{}, MapError(err)
	}
	s.stopWatchers()
	return nil, ClearIndexOutput{
		Success:         true,
		ClearedProjects: ids,
		Message:         "cleared all indexed projects",
	}, nil
}

// HealthCheckInput is health_check's (empty) input schema.
type HealthCheckInput struct{}

// HealthCheckOutput mirrors health.HealthStatus, per spec §4.13.
type HealthCheckOutput struct {
	Status        string                   `json:"status"`
	Timestamp     string                   `json:"timestamp"`
	UptimeSeconds int64                    `json:"uptimeSeconds"`
	Version       string                   `json:"version"`
	Dependencies  HealthDependenciesOutput `json:"dependencies"`
}

// HealthDependenciesOutput carries both probed dependency outcomes.
type HealthDependenciesOutput struct {
	VectorStore     HealthDependencyOutput `json:"vectorStore"`
	EmbeddingEngine HealthDependencyOutput `json:"embeddingEngine"`
}

// HealthDependencyOutput is one dependency's probe outcome.
type HealthDependencyOutput struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleHealthCheck(ctx context.Context, req *mcp.CallToolRequest, input HealthCheckInput) (*mcp.CallToolResult, HealthCheckOutput, error) {
	status, err := s.Health.Check(ctx)
	if err != nil {
		// Per spec §7: health_check errors are encoded into the returned
		// status rather than surfaced as a tool error.
		return nil, HealthCheckOutput{
			Status: string(health.OverallUnhealthy),
			Dependencies: HealthDependenciesOutput{
				VectorStore:     HealthDependencyOutput{Status: string(health.StatusUnknown), Error: err.Error()},
				EmbeddingEngine: HealthDependencyOutput{Status: string(health.StatusUnknown), Error: err.Error()},
			},
		}, nil
	}

	return nil, HealthCheckOutput{
		Status:        string(status.Status),
		Timestamp:     status.Timestamp.Format(time.RFC3339),
		UptimeSeconds: status.UptimeSeconds,
		Version:       status.Version,
		Dependencies: HealthDependenciesOutput{
			VectorStore: HealthDependencyOutput{
				Status:    string(status.Dependencies.VectorStore.Status),
				LatencyMs: status.Dependencies.VectorStore.LatencyMs,
				Error:     status.Dependencies.VectorStore.Error,
			},
			EmbeddingEngine: HealthDependencyOutput{
				Status:    string(status.Dependencies.EmbeddingEngine.Status),
				LatencyMs: status.Dependencies.EmbeddingEngine.LatencyMs,
				Error:     status.Dependencies.EmbeddingEngine.Error,
			},
		},
	}, nil
}
