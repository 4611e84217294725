package symbol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windschord/context-mcp-sub001/internal/lang"
)

func parse(t *testing.T, src string, l lang.Language) *lang.Tree {
	t.Helper()
	p := lang.NewParser()
	defer p.Close()
	tree, err := p.Parse(context.Background(), []byte(src), l)
	require.NoError(t, err)
	return tree
}

func TestExtractGoTopLevelDeclarations(t *testing.T) {
	src := `package main

const MaxRetries = 3

var counter int

type Widget struct {
	Name string
}

type Greeter interface {
	Greet() string
}

func greet(name string) string {
	return name
}

func (w Widget) Greet() string {
	return w.Name
}
`
	tree := parse(t, src, lang.Go)
	res, err := Extract(tree, []byte(src))
	require.NoError(t, err)
	assert.False(t, res.HasError)

	byName := map[string]*Symbol{}
	for _, s := range res.Symbols {
		byName[s.Name] = s
	}

	require.Contains(t, byName, "MaxRetries")
	assert.Equal(t, Constant, byName["MaxRetries"].Type)

	require.Contains(t, byName, "Widget")
	assert.Equal(t, Struct, byName["Widget"].Type)
	assert.True(t, byName["Widget"].IsExported)

	require.Contains(t, byName, "Greeter")
	assert.Equal(t, Interface, byName["Greeter"].Type)

	require.Contains(t, byName, "greet")
	assert.Equal(t, Function, byName["greet"].Type)
	assert.False(t, byName["greet"].IsExported)

	require.Contains(t, byName, "Greet")
	assert.Equal(t, Method, byName["Greet"].Type)
	assert.Equal(t, "Widget", byName["Greet"].Receiver)
}

func TestExtractSymbolSpansAreWithinFile(t *testing.T) {
	src := "package main\n\nfunc f() {}\n"
	tree := parse(t, src, lang.Go)
	res, err := Extract(tree, []byte(src))
	require.NoError(t, err)

	for _, s := range res.Symbols {
		assert.GreaterOrEqual(t, s.Location.StartLine, 0)
		assert.LessOrEqual(t, s.Location.StartLine, s.Location.EndLine)
	}
}

func TestExtractUnknownLanguageYieldsEmptyNonError(t *testing.T) {
	tree := &lang.Tree{Root: &lang.Node{Type: "source_file"}, Language: lang.PlatformIO, HasError: false}
	res, err := Extract(tree, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Symbols)
	assert.False(t, res.HasError)
}

func TestExtractArduinoSpecialFunctions(t *testing.T) {
	src := `void setup(){}
void loop(){}
int readButton(int pin){return 0;}
`
	tree := parse(t, src, lang.CPP)
	res, err := Extract(tree, []byte(src))
	require.NoError(t, err)
	require.Len(t, res.Symbols, 3)

	special := 0
	for _, s := range res.Symbols {
		if s.IsArduinoSpecial {
			special++
			assert.Contains(t, []string{"setup", "loop"}, s.Name)
		}
	}
	assert.Equal(t, 2, special)
}

func TestExtractNilTreeFails(t *testing.T) {
	_, err := Extract(nil, nil)
	assert.Error(t, err)
}

func TestExtractTypeScriptClassAndArrowFunction(t *testing.T) {
	src := `export class Shape {
  area() { return 0; }
}

export const make = (n) => n;
`
	tree := parse(t, src, lang.TypeScript)
	res, err := Extract(tree, []byte(src))
	require.NoError(t, err)

	var class, fn *Symbol
	for _, s := range res.Symbols {
		switch s.Name {
		case "Shape":
			class = s
		case "make":
			fn = s
		}
	}
	require.NotNil(t, class)
	assert.True(t, class.IsExported)
	require.Len(t, class.Members, 1)
	assert.Equal(t, "area", class.Members[0].Name)

	require.NotNil(t, fn)
	assert.Equal(t, Function, fn.Type)
	assert.True(t, fn.IsExported)
}
