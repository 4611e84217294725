// Package symbol walks a parsed syntax tree and produces the typed symbol
// model described in spec §3/§4.4: functions, methods, classes, interfaces,
// structs, enums, constants, variables, and trait impls, each carrying
// scope, location, and language-specific normalization flags.
package symbol

// Kind enumerates the symbol categories the extractor can produce.
type Kind string

const (
	Function  Kind = "function"
	Method    Kind = "method"
	Class     Kind = "class"
	Interface Kind = "interface"
	Struct    Kind = "struct"
	Enum      Kind = "enum"
	Constant  Kind = "constant"
	Variable  Kind = "variable"
	TraitImpl Kind = "trait_impl"
)

// Scope classifies where a symbol is declared.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeClass    Scope = "class"
	ScopeFunction Scope = "function"
)

// Location is a zero-based source span.
type Location struct {
	StartLine int
	EndLine   int
	StartCol  int
	EndCol    int
}

// Parameter is a single function/method parameter.
type Parameter struct {
	Name string
	Type string
}

// Symbol is one extracted declaration.
type Symbol struct {
	Name             string
	Type             Kind
	Scope            Scope
	Location         Location
	Parameters       []Parameter
	ReturnType       string
	IsAsync          bool
	IsExported       bool
	IsAbstract       bool
	IsArduinoSpecial bool
	Extends          []string
	// Receiver is the Go method receiver type name, or the Rust impl
	// target type name; empty for every other symbol kind.
	Receiver string
	Members  []*Symbol
}

// Result is the outcome of extracting symbols from one parsed file.
type Result struct {
	Symbols  []*Symbol
	HasError bool
}
