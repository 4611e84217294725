package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/gitignore"
	"github.com/windschord/context-mcp-sub001/internal/lang"
)

// Watcher observes a project root for file changes and emits debounced
// FileEvents, plus a one-shot Ready signal once the initial directory tree
// has been registered with the OS notifier, and an Errors stream for
// non-fatal notifier failures.
type Watcher struct {
	root   string
	opts   Options
	fs     *fsnotify.Watcher
	deb    *debouncer
	events chan FileEvent
	ready  chan struct{}
	errs   chan error

	mu        sync.Mutex
	watching  bool
	cancel    context.CancelFunc
	ignoreMus sync.RWMutex
	ignore    map[string]*gitignore.Matcher // dir -> compiled matcher, "" base
}

// New creates a Watcher for root. The returned Watcher is not started.
func New(root string, opts Options) *Watcher {
	opts = opts.WithDefaults()
	return &Watcher{
		root:   root,
		opts:   opts,
		events: make(chan FileEvent, 256),
		ready:  make(chan struct{}),
		errs:   make(chan error, 16),
		ignore: make(map[string]*gitignore.Matcher),
	}
}

// Events returns the channel of debounced file-change notifications.
func (w *Watcher) Events() <-chan FileEvent { return w.events }

// Ready is closed once after the initial recursive watch registration
// completes, signaling that subsequent events reflect live changes.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Errors returns the channel of non-fatal watch errors (e.g. a directory
// disappearing between readdir and watch registration).
func (w *Watcher) Errors() <-chan error { return w.errs }

// IsWatching reports whether Start has been called and Stop has not.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

// Start begins watching. It registers every directory beneath root
// (excluding the same default/gitignore rules the scanner applies), signals
// Ready, then processes fsnotify events until ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return errkit.New(errkit.KindAlreadyRunning, "watcher already running")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return errkit.Wrap(errkit.KindInternal, err, "create fs notifier")
	}
	w.fs = fsw
	w.deb = newDebouncer(w.opts.DebounceWindow, w.events)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.watching = true
	w.mu.Unlock()

	if err := w.registerTree(w.root); err != nil {
		w.fs.Close()
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return err
	}
	close(w.ready)

	go w.loop(runCtx)
	return nil
}

// Stop halts the watcher and releases OS resources. Safe to call more than
// once; subsequent calls are no-ops.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = false
	cancel := w.cancel
	fsw := w.fs
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if w.deb != nil {
		w.deb.stop()
	}
	if fsw != nil {
		return fsw.Close()
	}
	return nil
}

func (w *Watcher) registerTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort; surfaced via Errors during live watch, not here
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			rel = ""
		}
		if rel != "" && w.excludedDir(path, rel, d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	info, statErr := os.Stat(ev.Name)
	isDir := statErr == nil && info.IsDir()

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if isDir {
		if ev.Op&(fsnotify.Create) != 0 {
			if !w.excludedDir(ev.Name, rel, filepath.Base(ev.Name)) {
				if err := w.registerTree(ev.Name); err != nil {
					select {
					case w.errs <- err:
					default:
					}
				}
			}
		}
		return
	}

	if w.excludedFile(ev.Name, rel, filepath.Base(ev.Name)) {
		return
	}
	if !lang.IsSupported(rel) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		w.deb.add(rel, opCreate)
	case ev.Op&fsnotify.Write != 0:
		w.deb.add(rel, opWrite)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.deb.add(rel, opRemove)
	}
}

func (w *Watcher) excludedDir(abs, rel, name string) bool {
	if rel == "" {
		return false
	}
	if isDefaultExcludedDir(name) {
		return true
	}
	if matchesGlobs(rel, name, w.opts.ExcludePatterns) {
		return true
	}
	return w.opts.RespectIgnoreFiles && w.composite(filepath.Dir(abs)).Match(rel, true)
}

func (w *Watcher) excludedFile(abs, rel, name string) bool {
	if isSensitiveFile(name) {
		return true
	}
	if matchesGlobs(rel, name, w.opts.ExcludePatterns) {
		return true
	}
	return w.opts.RespectIgnoreFiles && w.composite(filepath.Dir(abs)).Match(rel, false)
}

// composite loads (and caches) the .gitignore/.mcpignore matcher rooted at
// dir, mirroring the scanner's own behavior so watch-time inclusion
// decisions stay consistent with the last full scan.
func (w *Watcher) composite(dir string) *gitignore.CompositeMatcher {
	w.ignoreMus.RLock()
	m, ok := w.ignore[dir]
	w.ignoreMus.RUnlock()
	if ok {
		return gitignore.NewComposite(m)
	}

	merged := gitignore.New()
	for _, name := range []string{".gitignore", ".mcpignore"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = merged.AddFromFile(p, "")
	}

	w.ignoreMus.Lock()
	w.ignore[dir] = merged
	w.ignoreMus.Unlock()
	return gitignore.NewComposite(merged)
}

// InvalidateIgnoreCache drops cached ignore matchers, e.g. after observing a
// change to a .gitignore/.mcpignore file itself.
func (w *Watcher) InvalidateIgnoreCache() {
	w.ignoreMus.Lock()
	defer w.ignoreMus.Unlock()
	w.ignore = make(map[string]*gitignore.Matcher)
}
