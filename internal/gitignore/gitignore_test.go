package gitignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicPatterns(t *testing.T) {
	m := New()
	m.AddPattern("node_modules/")
	m.AddPattern("*.log")

	assert.True(t, m.Match("node_modules", true))
	assert.True(t, m.Match("node_modules/foo.js", false))
	assert.True(t, m.Match("app.log", false))
	assert.False(t, m.Match("app.go", false))
}

func TestNegationLastMatchWins(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("!important.log")

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("important.log", false))
}

func TestAnchoredPattern(t *testing.T) {
	m := New()
	m.AddPattern("/build")

	assert.True(t, m.Match("build", true))
	assert.False(t, m.Match("src/build", true))
}

func TestDoubleStarPattern(t *testing.T) {
	m := New()
	m.AddPattern("**/*.min.js")

	assert.True(t, m.Match("vendor/jquery.min.js", false))
	assert.True(t, m.Match("jquery.min.js", false))
}

func TestCompositeMatcherUnionsDirectories(t *testing.T) {
	root := New()
	root.AddPattern("dist/")

	nested := New()
	nested.AddPatternWithBase("*.tmp", "src")

	c := NewComposite(root, nested)
	assert.True(t, c.Match("dist/bundle.js", false))
	assert.True(t, c.Match("src/scratch.tmp", false))
	assert.False(t, c.Match("src/main.go", false))
}

func TestEmpty(t *testing.T) {
	m := New()
	assert.True(t, m.Empty())
	m.AddPattern("*.log")
	assert.False(t, m.Empty())
}
