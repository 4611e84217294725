package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// NodeTypes names the grammar-specific node kinds SymbolExtractor looks for
// in a given language, grouped by the symbol kind they produce.
type NodeTypes struct {
	Functions  []string
	Methods    []string
	Classes    []string // struct/class-like container
	Interfaces []string // interface/trait-like container
	Enums      []string
	Constants  []string
	Variables  []string
	Impls      []string // Rust impl blocks
	NameField  string    // name of the child field carrying the identifier
}

// grammarEntry pairs a tree-sitter grammar with its node-type table.
type grammarEntry struct {
	grammar *sitter.Language
	types   NodeTypes
}

var registry = map[Language]grammarEntry{
	Go: {
		grammar: golang.GetLanguage(),
		types: NodeTypes{
			Functions: []string{"function_declaration"},
			Methods:   []string{"method_declaration"},
			Classes:   []string{}, // struct is a type_declaration in Go's grammar
			Constants: []string{"const_declaration"},
			Variables: []string{"var_declaration"},
			NameField: "name",
		},
	},
	TypeScript: {
		grammar: typescript.GetLanguage(),
		types: NodeTypes{
			Functions:  []string{"function_declaration"},
			Methods:    []string{"method_definition"},
			Classes:    []string{"class_declaration"},
			Interfaces: []string{"interface_declaration"},
			Enums:      []string{"enum_declaration"},
			Constants:  []string{"lexical_declaration"},
			Variables:  []string{"variable_declaration"},
			NameField:  "name",
		},
	},
	TSX: {
		grammar: tsx.GetLanguage(),
		types: NodeTypes{
			Functions:  []string{"function_declaration"},
			Methods:    []string{"method_definition"},
			Classes:    []string{"class_declaration"},
			Interfaces: []string{"interface_declaration"},
			Enums:      []string{"enum_declaration"},
			Constants:  []string{"lexical_declaration"},
			Variables:  []string{"variable_declaration"},
			NameField:  "name",
		},
	},
	JavaScript: {
		grammar: javascript.GetLanguage(),
		types: NodeTypes{
			Functions: []string{"function_declaration", "function"},
			Methods:   []string{"method_definition"},
			Classes:   []string{"class_declaration"},
			Constants: []string{"lexical_declaration"},
			Variables: []string{"variable_declaration"},
			NameField: "name",
		},
	},
	Python: {
		grammar: python.GetLanguage(),
		types: NodeTypes{
			Functions: []string{"function_definition"},
			Classes:   []string{"class_definition"},
			NameField: "name",
		},
	},
	Rust: {
		grammar: rust.GetLanguage(),
		types: NodeTypes{
			Functions:  []string{"function_item"},
			Classes:    []string{"struct_item"},
			Interfaces: []string{"trait_item"},
			Impls:      []string{"impl_item"},
			Constants:  []string{"const_item", "static_item"},
			NameField:  "name",
		},
	},
	Java: {
		grammar: java.GetLanguage(),
		types: NodeTypes{
			Methods:    []string{"method_declaration"},
			Classes:    []string{"class_declaration"},
			Interfaces: []string{"interface_declaration"},
			Constants:  []string{"field_declaration"},
			NameField:  "name",
		},
	},
	C: {
		grammar: c.GetLanguage(),
		types: NodeTypes{
			Functions: []string{"function_definition"},
			Classes:   []string{"struct_specifier"},
			NameField: "declarator",
		},
	},
	CPP: {
		grammar: cpp.GetLanguage(),
		types: NodeTypes{
			Functions: []string{"function_definition"},
			Classes:   []string{"struct_specifier", "class_specifier"},
			NameField: "declarator",
		},
	},
}

// TreeSitterLanguage returns the grammar registered for l, if any.
func TreeSitterLanguage(l Language) (*sitter.Language, bool) {
	e, ok := registry[l]
	if !ok {
		return nil, false
	}
	return e.grammar, true
}

// Types returns the node-type table registered for l, if any.
func Types(l Language) (NodeTypes, bool) {
	e, ok := registry[l]
	if !ok {
		return NodeTypes{}, false
	}
	return e.types, true
}

// IsParseable reports whether l has a registered tree-sitter grammar.
// Markdown and platformio.ini are indexed but have no AST grammar here;
// they are handled by the Markdown parser and sliding-window chunking
// respectively.
func IsParseable(l Language) bool {
	_, ok := registry[l]
	return ok
}
