// Package index implements the IndexingService orchestrator, per spec
// §4.12: it wires FileScanner, the language parser, SymbolExtractor,
// CommentExtractor, MarkdownParser/DocCodeLinker, Chunker, Embedder,
// VectorStore, BM25Index, and MetadataStore into project-level
// indexProject/updateFile/deleteFile/getIndexStats operations.
package index

import "time"

// Phase identifies one stage of an indexProject run, for progress
// reporting.
type Phase string

const (
	PhaseScan    Phase = "scan"
	PhaseParse   Phase = "parse"
	PhaseEmbed   Phase = "embed"
	PhasePersist Phase = "persist"
)

// Progress is one progress notification emitted during indexProject.
// Percent is the overall 0-100 progress across all phases, weighted per
// the phase bands in spec §4.12 (scan 0-20, parse 20-60, embed 60-90,
// persist 90-100).
type Progress struct {
	Phase   Phase
	Percent int
	Message string
}

// ProgressFunc receives Progress notifications. A nil func is valid: the
// orchestrator simply skips reporting.
type ProgressFunc func(Progress)

// Observer receives optional per-phase lifecycle notifications from a
// Service, as an alternative to ProgressFunc for callers that want
// per-phase counters rather than a single weighted percentage. A nil
// Observer is valid; Service falls back to noopObserver.
type Observer interface {
	OnScanProgress(done, total int)
	OnParseProgress(done, total int)
	OnEmbedProgress(done, total int)
	OnPersistProgress(done, total int)
}

type noopObserver struct{}

func (noopObserver) OnScanProgress(int, int)    {}
func (noopObserver) OnParseProgress(int, int)   {}
func (noopObserver) OnEmbedProgress(int, int)   {}
func (noopObserver) OnPersistProgress(int, int) {}

// State is a project's indexing lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateIndexing State = "indexing"
	StateIndexed  State = "indexed"
	StateError    State = "error"
)

// Stats summarizes one project's index, per spec §4.12 getIndexStats and
// the get_index_status tool surface in §6.
type Stats struct {
	TotalFiles     int
	IndexedFiles   int
	TotalSymbols   int
	TotalVectors   int
	TotalDocuments int
	LastIndexedAt  time.Time
	IndexSize      int64
	Status         State
	Errors         []string
}

// ProjectOptions configures a single indexProject run, the `options?`
// parameter of spec §4.12's indexProject.
type ProjectOptions struct {
	// ExcludePatterns are additional glob patterns (filepath.Match syntax),
	// matched against each entry's basename and its root-relative path,
	// beyond the scanner's built-in default exclusions and any
	// .gitignore/.mcpignore.
	ExcludePatterns []string

	// Extensions restricts scanning to this allow-list; empty means "use
	// the built-in supported-extension set".
	Extensions []string
}

// IndexResult is indexProject's return value.
type IndexResult struct {
	Indexed int
	Skipped int
	Errors  []string
}
