// Package lang maps file paths to languages and parses their source into a
// concrete syntax tree via tree-sitter, per spec §4.3.
package lang

import (
	"path/filepath"
	"strings"
)

// Language identifies one of the languages the pipeline understands.
type Language string

const (
	Unknown     Language = ""
	TypeScript  Language = "typescript"
	TSX         Language = "tsx"
	JavaScript  Language = "javascript"
	Python      Language = "python"
	Go          Language = "go"
	Rust        Language = "rust"
	Java        Language = "java"
	C           Language = "c"
	CPP         Language = "cpp"
	Markdown    Language = "markdown"
	PlatformIO  Language = "ini" // platformio.ini, recognized by filename
)

// extensionTable maps a lowercased extension (with leading dot) to a
// Language. ".ino" sketches are treated as C++ per spec §2 item 3.
var extensionTable = map[string]Language{
	".ts":  TypeScript,
	".tsx": TSX,
	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,
	".py":  Python,
	".go":  Go,
	".rs":  Rust,
	".java": Java,
	".c":   C,
	".h":   C,
	".cpp": CPP,
	".cc":  CPP,
	".cxx": CPP,
	".hpp": CPP,
	".ino": CPP,
	".md":  Markdown,
}

// SupportedExtensions lists every extension the pipeline indexes, per
// spec §6 "Supported extensions".
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTable))
	for ext := range extensionTable {
		exts = append(exts, ext)
	}
	return exts
}

// Detect maps a file path to a Language by extension, or by exact basename
// for platformio.ini which carries no distinguishing extension.
func Detect(path string) Language {
	base := filepath.Base(path)
	if strings.EqualFold(base, "platformio.ini") {
		return PlatformIO
	}
	ext := strings.ToLower(filepath.Ext(path))
	if l, ok := extensionTable[ext]; ok {
		return l
	}
	return Unknown
}

// IsSupported reports whether path would be indexed: either its extension
// is in the supported set, or its basename is platformio.ini (spec §4.1).
func IsSupported(path string) bool {
	return Detect(path) != Unknown
}

// IsDocumentation reports whether language is treated as a documentation
// language rather than source code (spec §2 item 3: Markdown).
func IsDocumentation(l Language) bool {
	return l == Markdown
}
