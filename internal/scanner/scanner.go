package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/windschord/context-mcp-sub001/internal/gitignore"
	"github.com/windschord/context-mcp-sub001/internal/lang"
)

// gitignoreCacheSize bounds the number of compiled per-directory ignore
// matchers kept in memory, so a deep tree with thousands of directories
// cannot grow the cache unboundedly.
const gitignoreCacheSize = 1000

// defaultExcludeDirs are always excluded, independent of any .gitignore.
// Mirrors spec §6 "default exclusions" for directory-shaped patterns.
var defaultExcludeDirs = []string{
	"node_modules", ".git", "dist", "build", "coverage",
	".next", ".nuxt", ".cache", "vendor", "__pycache__",
	"target", "bin", "obj",
}

// defaultExcludeFilePatterns are always excluded basename globs, independent
// of any .gitignore, from spec §6.
var defaultExcludeFilePatterns = []string{"*.pyc"}

// sensitiveFilePatterns are never indexed regardless of other rules.
var sensitiveFilePatterns = []string{
	".env", ".env.*", "credentials.json", "secrets.json",
	"id_rsa", "id_rsa.pub", "id_ed25519", "id_ed25519.pub",
	"*.key", "*.pem", "*.p12",
}

// Scanner discovers indexable files beneath a project root.
type Scanner struct {
	cacheMu sync.RWMutex
	cache   *lru.Cache[string, *gitignore.Matcher]
}

// New creates a Scanner with a bounded gitignore-matcher cache.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, err
	}
	return &Scanner{cache: cache}, nil
}

// Scan walks opts.RootDir depth-first and emits lifecycle Events on the
// returned channel, which is closed when the walk completes. Root-level
// failures (not a directory, cannot stat) are returned directly rather than
// emitted as events; per-directory read failures during the walk are
// skipped and counted in the final EventScanComplete.
func (s *Scanner) Scan(opts Options) (<-chan Event, error) {
	info, err := os.Stat(opts.RootDir)
	if err != nil {
		return nil, &ScanError{Kind: ErrCannotAccess, Path: opts.RootDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Kind: ErrNotADirectory, Path: opts.RootDir}
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	allow := buildAllowList(opts.Extensions)

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		start := time.Now()
		total, excluded := s.walk(opts, maxSize, allow, events)
		events <- Event{
			Kind:          EventScanComplete,
			TotalFiles:    total,
			ExcludedFiles: excluded,
			DurationMs:    time.Since(start).Milliseconds(),
		}
	}()

	return events, nil
}

func buildAllowList(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	allow := make(map[string]bool, len(exts))
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allow[strings.ToLower(e)] = true
	}
	return allow
}

func (s *Scanner) walk(opts Options, maxSize int64, allow map[string]bool, events chan<- Event) (total, excluded int) {
	root := opts.RootDir

	var walkDir func(dir, rel string, matchers []*gitignore.Matcher)
	walkDir = func(dir, rel string, matchers []*gitignore.Matcher) {
		if rel != "" {
			events <- Event{Kind: EventDirectoryEntered, Path: rel}
		}

		if opts.RespectIgnoreFiles {
			matchers = append(append([]*gitignore.Matcher{}, matchers...), s.loadLocalMatchers(dir, rel)...)
		}
		composite := gitignore.NewComposite(matchers...)

		entries, err := os.ReadDir(dir)
		if err != nil {
			// Per-directory read failures are skipped silently and counted.
			excluded++
			return
		}

		for _, entry := range entries {
			name := entry.Name()
			entryRel := name
			if rel != "" {
				entryRel = rel + "/" + name
			}
			entryAbs := filepath.Join(dir, name)

			isSymlink := entry.Type()&fs.ModeSymlink != 0
			if isSymlink && !opts.FollowSymlinks {
				continue
			}

			if entry.IsDir() {
				if shouldExcludeDir(entryRel, name, opts.ExcludePatterns) || composite.Match(entryRel, true) {
					excluded++
					continue
				}
				walkDir(entryAbs, entryRel, matchers)
				continue
			}

			if shouldExcludeFile(entryRel, name, opts.ExcludePatterns) || composite.Match(entryRel, false) {
				excluded++
				continue
			}

			if !lang.IsSupported(entryRel) {
				excluded++
				continue
			}
			if allow != nil {
				ext := strings.ToLower(filepath.Ext(name))
				if !allow[ext] && !strings.EqualFold(name, "platformio.ini") {
					excluded++
					continue
				}
			}

			fi, err := entry.Info()
			if err != nil {
				excluded++
				continue
			}
			if fi.Size() > maxSize {
				excluded++
				continue
			}

			fileInfo := &FileInfo{
				Path:     entryRel,
				AbsPath:  entryAbs,
				Size:     fi.Size(),
				ModTime:  fi.ModTime(),
				Language: string(lang.Detect(entryRel)),
			}

			events <- Event{Kind: EventFileFound, Path: entryRel, File: fileInfo}
			total++
			events <- Event{Kind: EventFileScanned, Path: entryRel, File: fileInfo}
		}
	}

	_ = root
	walkDir(opts.RootDir, "", nil)
	return total, excluded
}

// loadLocalMatchers loads .gitignore and .mcpignore from dir, if present,
// using the LRU cache keyed by absolute directory path.
func (s *Scanner) loadLocalMatchers(dir, base string) []*gitignore.Matcher {
	var out []*gitignore.Matcher
	for _, name := range []string{".gitignore", ".mcpignore"} {
		key := dir + "|" + name
		if m, ok := s.getCached(key); ok {
			if m != nil {
				out = append(out, m)
			}
			continue
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			s.putCached(key, nil)
			continue
		}
		m := gitignore.New()
		if err := m.AddFromFile(path, base); err != nil {
			s.putCached(key, nil)
			continue
		}
		s.putCached(key, m)
		out = append(out, m)
	}
	return out
}

func (s *Scanner) getCached(key string) (*gitignore.Matcher, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Get(key)
}

func (s *Scanner) putCached(key string, m *gitignore.Matcher) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Add(key, m)
}

// InvalidateCache clears the compiled ignore-matcher cache, e.g. when the
// watcher observes a .gitignore change.
func (s *Scanner) InvalidateCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Purge()
}

func shouldExcludeDir(relPath, name string, custom []string) bool {
	for _, d := range defaultExcludeDirs {
		if name == d {
			return true
		}
	}
	return matchesAny(relPath, name, custom)
}

func shouldExcludeFile(relPath, name string, custom []string) bool {
	for _, pat := range sensitiveFilePatterns {
		if matched, _ := filepath.Match(pat, name); matched {
			return true
		}
	}
	for _, pat := range defaultExcludeFilePatterns {
		if matched, _ := filepath.Match(pat, name); matched {
			return true
		}
	}
	return matchesAny(relPath, name, custom)
}

func matchesAny(relPath, name string, patterns []string) bool {
	for _, p := range patterns {
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
	}
	return false
}
