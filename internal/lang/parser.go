package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// Parser wraps tree-sitter to produce our language-neutral Tree. Parse is
// tolerant of malformed input: it always returns a tree (with HasError set
// and error nodes present) rather than failing, per spec §4.3. Only a nil
// source slice is rejected.
type Parser struct {
	ts *sitter.Parser
}

// NewParser creates a Parser. Callers must call Close when done to release
// the underlying tree-sitter parser.
func NewParser() *Parser {
	return &Parser{ts: sitter.NewParser()}
}

// Close releases the underlying tree-sitter resources.
func (p *Parser) Close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

// Parse parses source as language l. A nil source fails with
// errkit.KindInvalidParams; an empty (non-nil) slice yields a valid empty
// tree, and malformed input yields a tree with HasError true rather than an
// error return.
func (p *Parser) Parse(ctx context.Context, source []byte, l Language) (*Tree, error) {
	if source == nil {
		return nil, errkit.New(errkit.KindInvalidParams, "source must not be nil")
	}

	grammar, ok := TreeSitterLanguage(l)
	if !ok {
		return &Tree{
			Root:     &Node{Type: "source_file", Children: nil},
			Source:   source,
			Language: l,
			HasError: false,
		}, nil
	}

	p.ts.SetLanguage(grammar)
	tsTree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "tree-sitter parse failed")
	}
	if tsTree == nil {
		return nil, errkit.New(errkit.KindInternal, "tree-sitter returned a nil tree")
	}

	root := convert(tsTree.RootNode())
	return &Tree{
		Root:     root,
		Source:   source,
		Language: l,
		HasError: root.HasError,
	}, nil
}

func convert(n *sitter.Node) *Node {
	return convertChild(n, "")
}

func convertChild(n *sitter.Node, fieldName string) *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Type:       n.Type(),
		FieldName:  fieldName,
		StartByte:  n.StartByte(),
		EndByte:    n.EndByte(),
		StartPoint: Point{Row: n.StartPoint().Row, Column: n.StartPoint().Column},
		EndPoint:   Point{Row: n.EndPoint().Row, Column: n.EndPoint().Column},
		HasError:   n.HasError(),
		Children:   make([]*Node, 0, n.ChildCount()),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		field := n.FieldNameForChild(i)
		if converted := convertChild(child, field); converted != nil {
			out.Children = append(out.Children, converted)
		}
	}
	return out
}
