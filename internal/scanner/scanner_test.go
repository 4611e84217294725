package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestScanExcludesDefaultsAndSensitiveFiles exercises spec §8 end-to-end
// scenario 1: a tree containing src/a.ts, src/b.py, node_modules/x.js,
// .env, README.md returns exactly {src/a.ts, src/b.py, README.md}.
func TestScanExcludesDefaultsAndSensitiveFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src/a.ts"), "export const x = 1;")
	writeFile(t, filepath.Join(root, "src/b.py"), "x = 1")
	writeFile(t, filepath.Join(root, "node_modules/x.js"), "module.exports = {}")
	writeFile(t, filepath.Join(root, ".env"), "SECRET=1")
	writeFile(t, filepath.Join(root, "README.md"), "# hi")

	s, err := New()
	require.NoError(t, err)

	events, err := s.Scan(Options{RootDir: root})
	require.NoError(t, err)

	var found []string
	for ev := range events {
		if ev.Kind == EventFileFound {
			found = append(found, ev.File.Path)
		}
	}

	assert.ElementsMatch(t, []string{"src/a.ts", "src/b.py", "README.md"}, found)
}

func TestScanRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "ignored.go\n")
	writeFile(t, filepath.Join(root, "ignored.go"), "package x")
	writeFile(t, filepath.Join(root, "kept.go"), "package x")

	s, err := New()
	require.NoError(t, err)

	events, err := s.Scan(Options{RootDir: root, RespectIgnoreFiles: true})
	require.NoError(t, err)

	var found []string
	for ev := range events {
		if ev.Kind == EventFileFound {
			found = append(found, ev.File.Path)
		}
	}
	assert.ElementsMatch(t, []string{"kept.go"}, found)
}

func TestScanNotADirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f.txt")
	writeFile(t, file, "x")

	s, err := New()
	require.NoError(t, err)

	_, err = s.Scan(Options{RootDir: file})
	require.Error(t, err)
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, ErrNotADirectory, scanErr.Kind)
}

func TestScanCannotAccess(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Scan(Options{RootDir: filepath.Join(t.TempDir(), "does-not-exist")})
	require.Error(t, err)
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, ErrCannotAccess, scanErr.Kind)
}

func TestScanEmitsScanComplete(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package x")

	s, err := New()
	require.NoError(t, err)

	events, err := s.Scan(Options{RootDir: root})
	require.NoError(t, err)

	var sawComplete bool
	for ev := range events {
		if ev.Kind == EventScanComplete {
			sawComplete = true
			assert.Equal(t, 1, ev.TotalFiles)
		}
	}
	assert.True(t, sawComplete)
}
