package symbol

import (
	"unicode/utf8"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/lang"
)

// Extract walks tree and produces the symbol list for its language. An
// unsupported/unknown language yields an empty, non-error Result: the
// caller still gets a valid answer for files the parser could not produce
// a grammar-specific tree for.
func Extract(tree *lang.Tree, source []byte) (*Result, error) {
	if tree == nil {
		return nil, errkit.New(errkit.KindInvalidParams, "tree must not be nil")
	}

	types, ok := lang.Types(tree.Language)
	if !ok {
		return &Result{HasError: false}, nil
	}

	var syms []*Symbol
	switch tree.Language {
	case lang.Go:
		syms = extractGo(tree.Root, source, types)
	case lang.TypeScript, lang.TSX, lang.JavaScript:
		syms = extractJSLike(tree.Root, source, types, false)
	case lang.Python:
		syms = extractPython(tree.Root, source, types)
	case lang.Rust:
		syms = extractRust(tree.Root, source, types)
	case lang.Java:
		syms = extractJava(tree.Root, source, types)
	case lang.C, lang.CPP:
		syms = extractCLike(tree.Root, source, types, tree.Language == lang.CPP)
	}

	return &Result{Symbols: syms, HasError: tree.HasError}, nil
}

func loc(n *lang.Node) Location {
	return Location{
		StartLine: int(n.StartPoint.Row),
		EndLine:   int(n.EndPoint.Row),
		StartCol:  int(n.StartPoint.Column),
		EndCol:    int(n.EndPoint.Column),
	}
}

// identName resolves the textual name of n's name field (or its first
// identifier-shaped child as a fallback), using source for the text.
func identName(n *lang.Node, field string, source []byte) string {
	if target := n.ChildByField(field); target != nil {
		return target.Content(source)
	}
	for _, c := range n.Children {
		switch c.Type {
		case "identifier", "type_identifier", "field_identifier", "property_identifier":
			return c.Content(source)
		}
	}
	return ""
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r >= 'A' && r <= 'Z'
}

func hasChildType(n *lang.Node, t string) bool {
	for _, c := range n.Children {
		if c.Type == t {
			return true
		}
	}
	return false
}

// ---- Go ----

func extractGo(root *lang.Node, source []byte, types lang.NodeTypes) []*Symbol {
	var out []*Symbol
	for _, c := range root.Children {
		switch c.Type {
		case "function_declaration":
			out = append(out, goFunc(c, source, types, Function))
		case "method_declaration":
			out = append(out, goMethod(c, source, types))
		case "const_declaration":
			out = append(out, goSpecs(c, source, "const_spec", Constant)...)
		case "var_declaration":
			out = append(out, goSpecs(c, source, "var_spec", Variable)...)
		case "type_declaration":
			out = append(out, goTypeDecl(c, source)...)
		}
	}
	return out
}

func goFunc(n *lang.Node, source []byte, types lang.NodeTypes, kind Kind) *Symbol {
	name := identName(n, types.NameField, source)
	return &Symbol{
		Name:       name,
		Type:       kind,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		Parameters: goParams(n.ChildByField("parameters"), source),
		ReturnType: textOrEmpty(n.ChildByField("result"), source),
		IsExported: isExported(name),
	}
}

func goMethod(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	sym := goFunc(n, source, types, Method)
	sym.Scope = ScopeClass
	if recv := n.ChildByField("receiver"); recv != nil {
		sym.Receiver = goReceiverType(recv, source)
	}
	return sym
}

func goReceiverType(paramList *lang.Node, source []byte) string {
	for _, pd := range paramList.ChildrenByType("parameter_declaration") {
		if t := pd.ChildByField("type"); t != nil {
			return stripPointer(t.Content(source))
		}
	}
	return ""
}

func stripPointer(s string) string {
	for len(s) > 0 && s[0] == '*' {
		s = s[1:]
	}
	return s
}

func goParams(paramList *lang.Node, source []byte) []Parameter {
	if paramList == nil {
		return nil
	}
	var out []Parameter
	for _, pd := range paramList.ChildrenByType("parameter_declaration") {
		typ := textOrEmpty(pd.ChildByField("type"), source)
		names := pd.ChildrenByType("identifier")
		if len(names) == 0 {
			out = append(out, Parameter{Type: typ})
			continue
		}
		for _, id := range names {
			out = append(out, Parameter{Name: id.Content(source), Type: typ})
		}
	}
	return out
}

func textOrEmpty(n *lang.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(source)
}

func goSpecs(decl *lang.Node, source []byte, specType string, kind Kind) []*Symbol {
	var out []*Symbol
	for _, spec := range decl.ChildrenByType(specType) {
		typ := textOrEmpty(spec.ChildByField("type"), source)
		for _, id := range spec.ChildrenByType("identifier") {
			name := id.Content(source)
			out = append(out, &Symbol{
				Name:       name,
				Type:       kind,
				Scope:      ScopeGlobal,
				Location:   loc(spec),
				ReturnType: typ,
				IsExported: isExported(name),
			})
		}
	}
	return out
}

func goTypeDecl(decl *lang.Node, source []byte) []*Symbol {
	var out []*Symbol
	for _, spec := range decl.ChildrenByType("type_spec") {
		name := identName(spec, "name", source)
		body := spec.ChildByField("type")
		if body == nil {
			continue
		}
		var kind Kind
		switch body.Type {
		case "struct_type":
			kind = Struct
		case "interface_type":
			kind = Interface
		default:
			continue
		}
		out = append(out, &Symbol{
			Name:       name,
			Type:       kind,
			Scope:      ScopeGlobal,
			Location:   loc(spec),
			IsExported: isExported(name),
			Members:    goStructMembers(body, kind),
		})
	}
	return out
}

func goStructMembers(body *lang.Node, kind Kind) []*Symbol {
	if kind != Struct {
		return nil
	}
	var out []*Symbol
	for _, fd := range body.FindAllByType("field_declaration") {
		out = append(out, &Symbol{Name: "", Type: Variable, Scope: ScopeClass, Location: loc(fd)})
	}
	return out
}

// ---- TypeScript / TSX / JavaScript ----

func extractJSLike(root *lang.Node, source []byte, types lang.NodeTypes, exportedDefault bool) []*Symbol {
	var out []*Symbol
	for _, c := range root.Children {
		out = append(out, jsTopLevel(c, source, types, exportedDefault)...)
	}
	return out
}

func jsTopLevel(n *lang.Node, source []byte, types lang.NodeTypes, exported bool) []*Symbol {
	switch n.Type {
	case "export_statement":
		if decl := n.ChildByField("declaration"); decl != nil {
			return jsTopLevel(decl, source, types, true)
		}
		return nil
	case "function_declaration":
		return []*Symbol{jsFunction(n, source, types, exported)}
	case "class_declaration":
		return []*Symbol{jsClass(n, source, types, exported)}
	case "interface_declaration":
		return []*Symbol{jsInterface(n, source, types, exported)}
	case "enum_declaration":
		return []*Symbol{jsEnum(n, source, types, exported)}
	case "lexical_declaration", "variable_declaration":
		return jsVarDeclarators(n, source, types, exported)
	}
	return nil
}

func jsFunction(n *lang.Node, source []byte, types lang.NodeTypes, exported bool) *Symbol {
	name := identName(n, types.NameField, source)
	return &Symbol{
		Name:       name,
		Type:       Function,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		Parameters: jsParams(n.ChildByField("parameters"), source),
		IsAsync:    hasChildType(n, "async"),
		IsExported: exported,
	}
}

func jsParams(paramList *lang.Node, source []byte) []Parameter {
	if paramList == nil {
		return nil
	}
	var out []Parameter
	for _, p := range paramList.Children {
		switch p.Type {
		case "required_parameter", "optional_parameter":
			out = append(out, Parameter{Name: identName(p, "pattern", source)})
		case "identifier":
			out = append(out, Parameter{Name: p.Content(source)})
		}
	}
	return out
}

func jsClass(n *lang.Node, source []byte, types lang.NodeTypes, exported bool) *Symbol {
	name := identName(n, types.NameField, source)
	sym := &Symbol{
		Name:       name,
		Type:       Class,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		IsExported: exported,
		Extends:    jsHeritage(n, source),
	}
	if body := n.ChildByField("body"); body != nil {
		sym.Members = jsClassMembers(body, source, types)
	}
	return sym
}

func jsHeritage(n *lang.Node, source []byte) []string {
	var out []string
	for _, h := range n.FindAllByType("class_heritage") {
		for _, id := range h.FindAllByType("identifier") {
			out = append(out, id.Content(source))
		}
		for _, id := range h.FindAllByType("type_identifier") {
			out = append(out, id.Content(source))
		}
	}
	return out
}

func jsClassMembers(body *lang.Node, source []byte, types lang.NodeTypes) []*Symbol {
	var out []*Symbol
	for _, m := range body.ChildrenByType("method_definition") {
		name := identName(m, types.NameField, source)
		out = append(out, &Symbol{
			Name:       name,
			Type:       Method,
			Scope:      ScopeClass,
			Location:   loc(m),
			Parameters: jsParams(m.ChildByField("parameters"), source),
			IsAsync:    hasChildType(m, "async"),
			IsAbstract: hasChildType(m, "abstract"),
		})
	}
	return out
}

func jsInterface(n *lang.Node, source []byte, types lang.NodeTypes, exported bool) *Symbol {
	name := identName(n, types.NameField, source)
	return &Symbol{
		Name:       name,
		Type:       Interface,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		IsExported: exported,
		Extends:    jsHeritage(n, source),
	}
}

func jsEnum(n *lang.Node, source []byte, types lang.NodeTypes, exported bool) *Symbol {
	return &Symbol{
		Name:       identName(n, types.NameField, source),
		Type:       Enum,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		IsExported: exported,
	}
}

func jsVarDeclarators(n *lang.Node, source []byte, types lang.NodeTypes, exported bool) []*Symbol {
	var out []*Symbol
	for _, d := range n.ChildrenByType("variable_declarator") {
		name := identName(d, "name", source)
		value := d.ChildByField("value")
		if value != nil && (value.Type == "arrow_function" || value.Type == "function") {
			out = append(out, &Symbol{
				Name:       name,
				Type:       Function,
				Scope:      ScopeGlobal,
				Location:   loc(d),
				Parameters: jsParams(value.ChildByField("parameters"), source),
				IsAsync:    hasChildType(value, "async"),
				IsExported: exported,
			})
			continue
		}
		kind := Variable
		if isUpperSnake(name) {
			kind = Constant
		}
		out = append(out, &Symbol{
			Name:       name,
			Type:       kind,
			Scope:      ScopeGlobal,
			Location:   loc(d),
			IsExported: exported,
		})
	}
	return out
}

func isUpperSnake(s string) bool {
	if s == "" {
		return false
	}
	seenLetter := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r == '_', r >= '0' && r <= '9':
			if r >= 'A' && r <= 'Z' {
				seenLetter = true
			}
		default:
			return false
		}
	}
	return seenLetter
}

// ---- Python ----

func extractPython(root *lang.Node, source []byte, types lang.NodeTypes) []*Symbol {
	var out []*Symbol
	for _, c := range root.Children {
		switch c.Type {
		case "function_definition":
			out = append(out, pyFunction(c, source, types))
		case "class_definition":
			out = append(out, pyClass(c, source, types))
		case "expression_statement":
			out = append(out, pyModuleConstants(c, source)...)
		}
	}
	return out
}

func pyFunction(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	name := identName(n, types.NameField, source)
	// async def: the grammar places the "async" keyword inside
	// function_definition as a child token.
	isAsync := hasChildType(n, "async")
	return &Symbol{
		Name:       name,
		Type:       Function,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		Parameters: pyParams(n.ChildByField("parameters"), source),
		IsAsync:    isAsync,
	}
}

func pyParams(paramList *lang.Node, source []byte) []Parameter {
	if paramList == nil {
		return nil
	}
	var out []Parameter
	for _, p := range paramList.Children {
		switch p.Type {
		case "identifier":
			out = append(out, Parameter{Name: p.Content(source)})
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			out = append(out, Parameter{Name: identName(p, "name", source)})
		}
	}
	return out
}

func pyClass(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	name := identName(n, types.NameField, source)
	sym := &Symbol{
		Name:     name,
		Type:     Class,
		Scope:    ScopeGlobal,
		Location: loc(n),
		Extends:  pyBases(n, source),
	}
	if body := n.ChildByField("body"); body != nil {
		for _, m := range body.ChildrenByType("function_definition") {
			method := pyFunction(m, source, types)
			method.Type = Method
			method.Scope = ScopeClass
			sym.Members = append(sym.Members, method)
		}
	}
	return sym
}

func pyBases(n *lang.Node, source []byte) []string {
	sl := n.ChildByField("superclasses")
	if sl == nil {
		return nil
	}
	var out []string
	for _, id := range sl.ChildrenByType("identifier") {
		out = append(out, id.Content(source))
	}
	return out
}

func pyModuleConstants(n *lang.Node, source []byte) []*Symbol {
	assign := n.ChildByType("assignment")
	if assign == nil {
		return nil
	}
	name := identName(assign, "left", source)
	if !isUpperSnake(name) {
		return nil
	}
	return []*Symbol{{
		Name:     name,
		Type:     Constant,
		Scope:    ScopeGlobal,
		Location: loc(n),
	}}
}

// ---- Rust ----

func extractRust(root *lang.Node, source []byte, types lang.NodeTypes) []*Symbol {
	var out []*Symbol
	for _, c := range root.Children {
		n := c
		if n.Type == "visibility_modifier" {
			continue
		}
		switch n.Type {
		case "function_item":
			out = append(out, rustFunction(n, source, types))
		case "struct_item":
			out = append(out, rustStruct(n, source, types))
		case "trait_item":
			out = append(out, rustTrait(n, source, types))
		case "impl_item":
			out = append(out, rustImpl(n, source, types))
		case "const_item", "static_item":
			out = append(out, rustConst(n, source, types))
		}
	}
	return out
}

func rustVisible(n *lang.Node) bool {
	return hasChildType(n, "visibility_modifier")
}

func rustFunction(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	return &Symbol{
		Name:       identName(n, types.NameField, source),
		Type:       Function,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		Parameters: rustParams(n.ChildByField("parameters"), source),
		ReturnType: textOrEmpty(n.ChildByField("return_type"), source),
		IsExported: rustVisible(n),
		IsAsync:    hasChildType(n, "async"),
	}
}

func rustParams(paramList *lang.Node, source []byte) []Parameter {
	if paramList == nil {
		return nil
	}
	var out []Parameter
	for _, p := range paramList.ChildrenByType("parameter") {
		out = append(out, Parameter{
			Name: identName(p, "pattern", source),
			Type: textOrEmpty(p.ChildByField("type"), source),
		})
	}
	return out
}

func rustStruct(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	return &Symbol{
		Name:       identName(n, types.NameField, source),
		Type:       Struct,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		IsExported: rustVisible(n),
	}
}

func rustTrait(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	sym := &Symbol{
		Name:       identName(n, types.NameField, source),
		Type:       Interface,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		IsExported: rustVisible(n),
	}
	if body := n.ChildByField("body"); body != nil {
		for _, m := range body.ChildrenByType("function_item") {
			method := rustFunction(m, source, types)
			method.Type = Method
			method.Scope = ScopeClass
			sym.Members = append(sym.Members, method)
		}
	}
	return sym
}

func rustImpl(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	target := textOrEmpty(n.ChildByField("type"), source)
	sym := &Symbol{
		Name:     target,
		Type:     TraitImpl,
		Scope:    ScopeGlobal,
		Location: loc(n),
		Receiver: target,
	}
	if trait := n.ChildByField("trait"); trait != nil {
		sym.Extends = append(sym.Extends, trait.Content(source))
	}
	if body := n.ChildByField("body"); body != nil {
		for _, m := range body.ChildrenByType("function_item") {
			method := rustFunction(m, source, types)
			method.Type = Method
			method.Scope = ScopeClass
			method.Receiver = target
			sym.Members = append(sym.Members, method)
		}
	}
	return sym
}

func rustConst(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	return &Symbol{
		Name:       identName(n, types.NameField, source),
		Type:       Constant,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		ReturnType: textOrEmpty(n.ChildByField("type"), source),
		IsExported: rustVisible(n),
	}
}

// ---- Java ----

func extractJava(root *lang.Node, source []byte, types lang.NodeTypes) []*Symbol {
	var out []*Symbol
	for _, c := range root.ChildrenByType("class_declaration") {
		out = append(out, javaClass(c, source, types))
	}
	for _, c := range root.ChildrenByType("interface_declaration") {
		out = append(out, javaInterface(c, source, types))
	}
	return out
}

func javaClass(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	sym := &Symbol{
		Name:       identName(n, types.NameField, source),
		Type:       Class,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		IsExported: true,
		Extends:    javaSuperclass(n, source),
	}
	if body := n.ChildByField("body"); body != nil {
		sym.Members = javaMembers(body, source, types)
	}
	return sym
}

func javaInterface(n *lang.Node, source []byte, types lang.NodeTypes) *Symbol {
	sym := &Symbol{
		Name:       identName(n, types.NameField, source),
		Type:       Interface,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		IsExported: true,
	}
	if body := n.ChildByField("body"); body != nil {
		sym.Members = javaMembers(body, source, types)
	}
	return sym
}

func javaSuperclass(n *lang.Node, source []byte) []string {
	sc := n.ChildByField("superclass")
	if sc == nil {
		return nil
	}
	var out []string
	for _, id := range sc.FindAllByType("type_identifier") {
		out = append(out, id.Content(source))
	}
	return out
}

func javaMembers(body *lang.Node, source []byte, types lang.NodeTypes) []*Symbol {
	var out []*Symbol
	for _, m := range body.ChildrenByType("method_declaration") {
		out = append(out, &Symbol{
			Name:       identName(m, types.NameField, source),
			Type:       Method,
			Scope:      ScopeClass,
			Location:   loc(m),
			Parameters: javaParams(m.ChildByField("parameters"), source),
			ReturnType: textOrEmpty(m.ChildByField("type"), source),
			IsAbstract: hasChildType(m, "abstract"),
		})
	}
	for _, f := range body.ChildrenByType("field_declaration") {
		typ := textOrEmpty(f.ChildByField("type"), source)
		for _, decl := range f.ChildrenByType("variable_declarator") {
			out = append(out, &Symbol{
				Name:       identName(decl, "name", source),
				Type:       Constant,
				Scope:      ScopeClass,
				Location:   loc(f),
				ReturnType: typ,
			})
		}
	}
	return out
}

func javaParams(paramList *lang.Node, source []byte) []Parameter {
	if paramList == nil {
		return nil
	}
	var out []Parameter
	for _, p := range paramList.ChildrenByType("formal_parameter") {
		out = append(out, Parameter{
			Name: identName(p, "name", source),
			Type: textOrEmpty(p.ChildByField("type"), source),
		})
	}
	return out
}

// ---- C / C++ ----

func extractCLike(root *lang.Node, source []byte, types lang.NodeTypes, cpp bool) []*Symbol {
	var out []*Symbol
	for _, c := range root.Children {
		switch c.Type {
		case "function_definition":
			out = append(out, cFunction(c, source, cpp))
		case "struct_specifier":
			out = append(out, cAggregate(c, source, Struct))
		case "class_specifier":
			out = append(out, cAggregate(c, source, Class))
		}
	}
	return out
}

func cFunction(n *lang.Node, source []byte, cpp bool) *Symbol {
	declarator := n.ChildByField("declarator")
	name := cFunctionName(declarator, source)
	sym := &Symbol{
		Name:       name,
		Type:       Function,
		Scope:      ScopeGlobal,
		Location:   loc(n),
		ReturnType: textOrEmpty(n.ChildByField("type"), source),
		Parameters: cParams(declarator, source),
	}
	if cpp && (name == "setup" || name == "loop") {
		sym.IsArduinoSpecial = true
	}
	return sym
}

func cFunctionName(declarator *lang.Node, source []byte) string {
	for d := declarator; d != nil; {
		if d.Type == "function_declarator" {
			if inner := d.ChildByField("declarator"); inner != nil {
				return cFunctionName(inner, source)
			}
		}
		if d.Type == "identifier" {
			return d.Content(source)
		}
		d = d.ChildByField("declarator")
	}
	return ""
}

func cParams(declarator *lang.Node, source []byte) []Parameter {
	if declarator == nil {
		return nil
	}
	paramList := declarator.ChildByType("parameter_list")
	if paramList == nil {
		for _, c := range declarator.Children {
			if c.Type == "function_declarator" {
				return cParams(c, source)
			}
		}
		return nil
	}
	var out []Parameter
	for _, pd := range paramList.ChildrenByType("parameter_declaration") {
		out = append(out, Parameter{
			Type: textOrEmpty(pd.ChildByField("type"), source),
			Name: identName(pd, "declarator", source),
		})
	}
	return out
}

func cAggregate(n *lang.Node, source []byte, kind Kind) *Symbol {
	return &Symbol{
		Name:     identName(n, "name", source),
		Type:     kind,
		Scope:    ScopeGlobal,
		Location: loc(n),
	}
}
