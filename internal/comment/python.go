package comment

import (
	"strings"

	"github.com/windschord/context-mcp-sub001/internal/lang"
)

// pythonDocstrings finds triple-quoted string literals that are the first
// statement of a function or class body and treats them as DocComments,
// per spec §4.5.
func pythonDocstrings(root *lang.Node, source []byte) []*Comment {
	var out []*Comment
	for _, n := range root.FindAllByType("function_definition") {
		if c := docstringOf(n, source); c != nil {
			out = append(out, c)
		}
	}
	for _, n := range root.FindAllByType("class_definition") {
		if c := docstringOf(n, source); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func docstringOf(n *lang.Node, source []byte) *Comment {
	body := n.ChildByField("body")
	if body == nil || len(body.Children) == 0 {
		return nil
	}
	first := body.Children[0]
	if first.Type != "expression_statement" {
		return nil
	}
	str := first.ChildByType("string")
	if str == nil {
		return nil
	}
	raw := str.Content(source)
	content := stripPythonQuotes(raw)
	if content == "" {
		return nil
	}
	c := &Comment{
		Type:     DocComment,
		Content:  content,
		Position: Position{StartLine: int(str.StartPoint.Row), EndLine: int(str.EndPoint.Row)},
	}
	if m := markerPattern.FindStringSubmatch(content); m != nil {
		c.Marker = Marker(m[1])
	}
	c.Tags = extractTags(content)
	if nameNode := n.ChildByField("name"); nameNode != nil {
		c.AssociatedSymbol = nameNode.Content(source)
	}
	return c
}

func stripPythonQuotes(raw string) string {
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			raw = raw[len(q) : len(raw)-len(q)]
			break
		}
	}
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2 {
			raw = raw[1 : len(raw)-1]
			break
		}
	}
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}
