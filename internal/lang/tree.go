package lang

// Point is a zero-based row/column position in a source file.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is our language-neutral view of a tree-sitter syntax node.
type Node struct {
	Type       string
	FieldName  string // the grammar field name this node is held under in its parent, "" if none
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	HasError   bool
	Children   []*Node
}

// Tree is a parsed file: the root node plus the source it was parsed from.
type Tree struct {
	Root     *Node
	Source   []byte
	Language Language
	HasError bool
}

// Content returns the source text spanned by n.
func (n *Node) Content(source []byte) string {
	if n == nil || n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// ChildByType returns the first direct child with the given node type.
func (n *Node) ChildByType(nodeType string) *Node {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// ChildByField returns the first direct child held under the given grammar
// field name, e.g. "name" or "body".
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.FieldName == field {
			return c
		}
	}
	return nil
}

// ChildrenByType returns all direct children with the given node type.
func (n *Node) ChildrenByType(nodeType string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == nodeType {
			out = append(out, c)
		}
	}
	return out
}

// FindAllByType recursively collects every node (including n itself)
// matching nodeType.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var out []*Node
	if n.Type == nodeType {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, c.FindAllByType(nodeType)...)
	}
	return out
}

// VisitOptions controls a Walk traversal.
type VisitOptions struct {
	// SkipErrors excludes subtrees rooted at an error node.
	SkipErrors bool
	// MaxDepth bounds recursion; zero means unbounded.
	MaxDepth int
}

// Walk traverses the tree depth-first, calling visit for each node. visit
// returns false to stop descending into that node's children; it does not
// stop the overall traversal.
func (n *Node) Walk(visit func(*Node) bool) {
	n.walk(visit, VisitOptions{}, 0)
}

// WalkWithOptions traverses the tree honoring SkipErrors and MaxDepth.
func (n *Node) WalkWithOptions(visit func(*Node) bool, opts VisitOptions) {
	n.walk(visit, opts, 0)
}

func (n *Node) walk(visit func(*Node) bool, opts VisitOptions, depth int) {
	if opts.SkipErrors && n.Type == "ERROR" {
		return
	}
	if !visit(n) {
		return
	}
	if opts.MaxDepth > 0 && depth+1 >= opts.MaxDepth {
		return
	}
	for _, c := range n.Children {
		c.walk(visit, opts, depth+1)
	}
}
