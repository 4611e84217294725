package comment

import (
	"regexp"
	"sort"
	"strings"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/lang"
)

// commentNodeTypes lists the tree-sitter node types that hold comments for
// each language; most grammars use a single "comment" type, Rust and Java
// split line/block forms.
var commentNodeTypes = map[lang.Language][]string{
	lang.Go:         {"comment"},
	lang.TypeScript: {"comment"},
	lang.TSX:        {"comment"},
	lang.JavaScript: {"comment"},
	lang.C:          {"comment"},
	lang.CPP:        {"comment"},
	lang.Rust:       {"line_comment", "block_comment"},
	lang.Java:       {"line_comment", "block_comment"},
}

var markerPattern = regexp.MustCompile(`(?:^|[^A-Za-z])(TODO|FIXME|NOTE|HACK|XXX|BUG)\b`)

// SymbolRef is the minimal view of a symbol the extractor needs to perform
// association; callers project their symbol.Symbol list into this shape.
type SymbolRef struct {
	Name      string
	StartLine int
}

// Extract walks tree's comment nodes (and, for Python, docstring string
// literals) and produces the classified, associated comment list.
func Extract(tree *lang.Tree, source []byte, symbols []SymbolRef) (*Result, error) {
	if tree == nil {
		return nil, errkit.New(errkit.KindInvalidParams, "tree must not be nil")
	}

	var raw []*Comment
	if tree.Language == lang.Python {
		raw = pythonDocstrings(tree.Root, source)
	} else {
		for _, nodeType := range commentNodeTypes[tree.Language] {
			for _, n := range tree.Root.FindAllByType(nodeType) {
				raw = append(raw, buildComment(n.Content(source), n.StartPoint.Row, n.EndPoint.Row))
			}
		}
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].Position.StartLine < raw[j].Position.StartLine })
	merged := mergeAdjacentDocLines(raw)

	sortedSymbols := append([]SymbolRef(nil), symbols...)
	sort.Slice(sortedSymbols, func(i, j int) bool { return sortedSymbols[i].StartLine < sortedSymbols[j].StartLine })
	for _, c := range merged {
		if c.Type != DocComment || c.AssociatedSymbol != "" {
			continue
		}
		c.AssociatedSymbol = nearestFollowing(c.Position.EndLine, sortedSymbols)
	}

	return &Result{Comments: merged}, nil
}

func buildComment(raw string, startLine, endLine uint32) *Comment {
	trimmed := strings.TrimSpace(raw)
	kind := classify(trimmed)
	content := cleanContent(trimmed, kind)
	if content == "" {
		return nil
	}
	c := &Comment{
		Type:     kind,
		Content:  content,
		Position: Position{StartLine: int(startLine), EndLine: int(endLine)},
	}
	if m := markerPattern.FindStringSubmatch(content); m != nil {
		c.Marker = Marker(m[1])
	}
	if kind == DocComment {
		c.Tags = extractTags(content)
	}
	return c
}

func classify(raw string) Kind {
	switch {
	case strings.HasPrefix(raw, "///"), strings.HasPrefix(raw, "//!"):
		return DocComment
	case strings.HasPrefix(raw, "/**"):
		return DocComment
	case strings.HasPrefix(raw, "/*"):
		return MultiLine
	case strings.HasPrefix(raw, "//"):
		return SingleLine
	case strings.HasPrefix(raw, "#"):
		return SingleLine
	default:
		return SingleLine
	}
}

func cleanContent(raw string, kind Kind) string {
	switch {
	case strings.HasPrefix(raw, "/**"):
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "/**"), "*/")
	case strings.HasPrefix(raw, "/*"):
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
	case strings.HasPrefix(raw, "///"):
		raw = strings.TrimPrefix(raw, "///")
	case strings.HasPrefix(raw, "//!"):
		raw = strings.TrimPrefix(raw, "//!")
	case strings.HasPrefix(raw, "//"):
		raw = strings.TrimPrefix(raw, "//")
	case strings.HasPrefix(raw, "#"):
		raw = strings.TrimPrefix(raw, "#")
	}

	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		lines[i] = strings.TrimSpace(l)
	}
	// Drop leading/trailing blank lines but keep interior structure.
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

// mergeAdjacentDocLines concatenates DocComment entries on directly
// adjacent source lines (such as a run of Rust `///` or `//!` lines) into
// one Comment. Comments of other types pass through unchanged and are
// never merged.
func mergeAdjacentDocLines(in []*Comment) []*Comment {
	var out []*Comment
	i := 0
	for i < len(in) {
		c := in[i]
		if c == nil {
			i++
			continue
		}
		if c.Type != DocComment {
			out = append(out, c)
			i++
			continue
		}
		j := i + 1
		contentLines := []string{c.Content}
		endLine := c.Position.EndLine
		for j < len(in) && in[j] != nil && in[j].Type == DocComment &&
			in[j].Position.StartLine == endLine+1 {
			contentLines = append(contentLines, in[j].Content)
			endLine = in[j].Position.EndLine
			j++
		}
		merged := &Comment{
			Type:     DocComment,
			Content:  strings.TrimSpace(strings.Join(contentLines, "\n")),
			Position: Position{StartLine: c.Position.StartLine, EndLine: endLine},
			Marker:   c.Marker,
		}
		merged.Tags = extractTags(merged.Content)
		out = append(out, merged)
		i = j
	}
	return out
}

// nearestFollowing returns the name of the symbol whose start line is the
// smallest value >= endLine and within three lines of it.
func nearestFollowing(endLine int, symbols []SymbolRef) string {
	best := ""
	bestDist := -1
	for _, s := range symbols {
		if s.StartLine < endLine {
			continue
		}
		dist := s.StartLine - endLine
		if dist > 3 {
			break // symbols are sorted; no closer candidate remains
		}
		if bestDist == -1 || dist < bestDist {
			best = s.Name
			bestDist = dist
		}
	}
	return best
}
