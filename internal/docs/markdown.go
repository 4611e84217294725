// Package docs parses Markdown documentation and links it to candidate
// source files, per spec §4.6.
package docs

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// LinkType distinguishes an internal (relative) link from an external one.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
)

// Heading is a Markdown heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Language  string
	Code      string
	StartLine int
	EndLine   int
}

// Link is a Markdown link.
type Link struct {
	Text string
	URL  string
	Type LinkType
	Line int
}

// FilePath is a file-path-shaped reference found inside an inline code span.
type FilePath struct {
	Path       string
	IsAbsolute bool
	Line       int
}

// Image is a Markdown image reference.
type Image struct {
	Alt  string
	URL  string
	Line int
}

// Document is the structured result of parsing one Markdown file.
type Document struct {
	Headings   []Heading
	CodeBlocks []CodeBlock
	Links      []Link
	FilePaths  []FilePath
	Images     []Image
}

// lineIndex maps byte offsets to zero-based line numbers.
type lineIndex struct {
	starts []int
}

func newLineIndex(source []byte) *lineIndex {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts}
}

func (l *lineIndex) lineOf(offset int) int {
	lo, hi := 0, len(l.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if l.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Parse parses Markdown source into a Document.
func Parse(source []byte) (*Document, error) {
	if source == nil {
		return nil, errkit.New(errkit.KindInvalidParams, "source must not be nil")
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))
	lines := newLineIndex(source)

	doc := &Document{}
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			doc.Headings = append(doc.Headings, Heading{
				Level: node.Level,
				Text:  plainText(node, source),
				Line:  lineOf(node, source, lines),
			})
		case *ast.FencedCodeBlock:
			code := linesText(node.Lines(), source)
			start := lines.lineOf(node.Lines().At(0).Start)
			end := start
			if n := node.Lines().Len(); n > 0 {
				end = lines.lineOf(node.Lines().At(n - 1).Stop)
			}
			doc.CodeBlocks = append(doc.CodeBlocks, CodeBlock{
				Language:  string(node.Language(source)),
				Code:      code,
				StartLine: start,
				EndLine:   end,
			})
		case *ast.Link:
			url := string(node.Destination)
			doc.Links = append(doc.Links, Link{
				Text: plainText(node, source),
				URL:  url,
				Type: classifyLink(url),
				Line: lineOf(node, source, lines),
			})
		case *ast.AutoLink:
			url := string(node.URL(source))
			doc.Links = append(doc.Links, Link{
				Text: url,
				URL:  url,
				Type: classifyLink(url),
				Line: lineOf(node, source, lines),
			})
		case *ast.Image:
			doc.Images = append(doc.Images, Image{
				Alt:  plainText(node, source),
				URL:  string(node.Destination),
				Line: lineOf(node, source, lines),
			})
		case *ast.CodeSpan:
			content := plainText(node, source)
			if p, abs, ok := detectFilePath(content); ok {
				doc.FilePaths = append(doc.FilePaths, FilePath{Path: p, IsAbsolute: abs, Line: lineOf(node, source, lines)})
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, errkit.Wrap(errkit.KindParseError, err, "markdown walk failed")
	}
	return doc, nil
}

func classifyLink(url string) LinkType {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return LinkExternal
	}
	return LinkInternal
}

// detectFilePath reports whether content looks like a file-path reference:
// an absolute path, or a relative path containing a slash.
func detectFilePath(content string) (path string, isAbsolute bool, ok bool) {
	content = strings.TrimSpace(content)
	if content == "" || strings.ContainsAny(content, " \t()[]{}") {
		return "", false, false
	}
	if strings.HasPrefix(content, "/") {
		return content, true, true
	}
	if strings.Contains(content, "/") && !strings.Contains(content, "://") {
		return content, false, true
	}
	return "", false, false
}

func plainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if node, ok := n.(*ast.Text); ok {
			sb.Write(node.Segment.Value(source))
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func linesText(lines *text.Segments, source []byte) string {
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		sb.Write(lines.At(i).Value(source))
	}
	return sb.String()
}

// linesNode is implemented by goldmark's block node types (Heading,
// FencedCodeBlock, Paragraph, ...) via ast.BaseBlock; inline nodes (Link,
// Image, CodeSpan) do not implement it, so lineOf walks up to the nearest
// block ancestor.
type linesNode interface {
	Lines() *text.Segments
}

func lineOf(n ast.Node, source []byte, idx *lineIndex) int {
	for cur := n; cur != nil; cur = cur.Parent() {
		if ln, ok := cur.(linesNode); ok {
			if seg := ln.Lines(); seg != nil && seg.Len() > 0 {
				return idx.lineOf(seg.At(0).Start)
			}
		}
	}
	return 0
}
