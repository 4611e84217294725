// Package chunk splits a parsed file into indexable chunks anchored on
// symbols, falling back to sliding windows for uncovered regions and for
// languages with no symbol extractor, per spec §4.7.
package chunk

import (
	"strconv"
	"strings"

	"github.com/windschord/context-mcp-sub001/internal/lang"
	"github.com/windschord/context-mcp-sub001/internal/symbol"
	"github.com/windschord/context-mcp-sub001/internal/tokenize"
)

// DefaultWindowLines is the sliding-window chunk size used when no symbol
// covers a region of the file.
const DefaultWindowLines = 40

// ContextLines is how many lines of surrounding source are appended to a
// chunk's span for snippet rendering.
const ContextLines = 3

// Metadata is the structured metadata a chunk carries into the vector
// store and BM25 index.
type Metadata struct {
	Language   string
	Path       string
	LineStart  int
	LineEnd    int
	ProjectID  string
	SymbolName string // "" if this chunk is not symbol-anchored
	SymbolType string // "" if this chunk is not symbol-anchored

	// RelatedFiles holds source paths the DocCodeLinker scored against this
	// chunk's document, highest-scoring first. Populated by the orchestrator
	// for Markdown chunks only; empty for code chunks.
	RelatedFiles []string
}

// Chunk is one indexable unit of source content.
type Chunk struct {
	ID       string
	Text     string
	Metadata Metadata
	Tokens   []string
}

// Options configures chunk construction.
type Options struct {
	ProjectID   string
	WindowLines int // default DefaultWindowLines when <= 0
}

// Build produces the chunk list for one file. symbols should come from
// symbol.Extract for the same parsed tree; pass nil for Markdown or any
// language without an extractor, which falls back entirely to sliding
// windows. Uncovered regions made only of blank lines produce no chunk.
func Build(path string, source []byte, language lang.Language, symbols []*symbol.Symbol, opts Options) []*Chunk {
	if len(source) == 0 {
		return nil
	}
	window := opts.WindowLines
	if window <= 0 {
		window = DefaultWindowLines
	}
	lines := strings.Split(string(source), "\n")

	if lang.IsDocumentation(language) || len(symbols) == 0 {
		return slidingChunks(path, lines, 0, len(lines), language, opts)
	}

	var out []*Chunk
	cov := newCoverage(len(lines))

	for _, sym := range symbols {
		out = append(out, makeChunk(path, lines, sym.Location.StartLine, sym.Location.EndLine, language, opts, sym.Name, string(sym.Type)))
		cov.mark(sym.Location.StartLine, sym.Location.EndLine)
		for _, m := range sym.Members {
			out = append(out, makeChunk(path, lines, m.Location.StartLine, m.Location.EndLine, language, opts, sym.Name, string(m.Type)))
			cov.mark(m.Location.StartLine, m.Location.EndLine)
		}
	}

	for _, gap := range cov.gaps() {
		if strings.TrimSpace(strings.Join(lines[gap.start:gap.end+1], "")) == "" {
			continue
		}
		out = append(out, slidingChunks(path, lines, gap.start, gap.end+1, language, opts)...)
	}

	return out
}

func slidingChunks(path string, lines []string, start, endExclusive int, language lang.Language, opts Options) []*Chunk {
	window := opts.WindowLines
	if window <= 0 {
		window = DefaultWindowLines
	}
	var out []*Chunk
	for s := start; s < endExclusive; s += window {
		e := s + window
		if e > endExclusive {
			e = endExclusive
		}
		if e <= s {
			continue
		}
		out = append(out, makeChunk(path, lines, s, e-1, language, opts, "", ""))
	}
	return out
}

func makeChunk(path string, lines []string, startLine, endLine int, language lang.Language, opts Options, symbolName, symbolType string) *Chunk {
	ctxStart := startLine - ContextLines
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := endLine + ContextLines
	if ctxEnd > len(lines)-1 {
		ctxEnd = len(lines) - 1
	}

	text := strings.Join(lines[ctxStart:ctxEnd+1], "\n")
	core := strings.Join(lines[startLine:endLine+1], "\n")

	return &Chunk{
		ID:   path + ":" + strconv.Itoa(startLine),
		Text: text,
		Metadata: Metadata{
			Language:   string(language),
			Path:       path,
			LineStart:  startLine,
			LineEnd:    endLine,
			ProjectID:  opts.ProjectID,
			SymbolName: symbolName,
			SymbolType: symbolType,
		},
		Tokens: tokenize.Tokenize(core),
	}
}
