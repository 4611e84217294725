package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectByExtension(t *testing.T) {
	cases := map[string]Language{
		"src/a.ts":       TypeScript,
		"src/a.tsx":      TSX,
		"src/b.py":       Python,
		"main.go":        Go,
		"lib.rs":         Rust,
		"App.java":       Java,
		"sketch.ino":     CPP,
		"README.md":      Markdown,
		"notes.txt":      Unknown,
	}
	for path, want := range cases {
		assert.Equal(t, want, Detect(path), path)
	}
}

func TestDetectPlatformioByFilename(t *testing.T) {
	assert.Equal(t, PlatformIO, Detect("firmware/platformio.ini"))
	assert.True(t, IsSupported("firmware/platformio.ini"))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("a.go"))
	assert.False(t, IsSupported("a.exe"))
}

func TestIsDocumentation(t *testing.T) {
	assert.True(t, IsDocumentation(Markdown))
	assert.False(t, IsDocumentation(Go))
}
