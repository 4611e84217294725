package watcher

import (
	"sync"
	"time"
)

// rawOp is the unprocessed operation reported by fsnotify for a path.
type rawOp int

const (
	opCreate rawOp = iota
	opWrite
	opRemove
	opNone // settles to no emission, e.g. CREATE immediately undone by REMOVE
)

// debouncer coalesces bursts of raw per-path operations into a single
// FileEvent, emitted DebounceWindow after the last observed operation for
// that path. Coalescing rules (grounded on the same per-path state machine
// used for this purpose elsewhere in the corpus):
//
//	CREATE then WRITE   -> ADDED
//	CREATE then REMOVE  -> nothing (file never settled)
//	WRITE then REMOVE   -> DELETED
//	REMOVE then CREATE  -> CHANGED (atomic replace via rename-over)
type debouncer struct {
	window time.Duration
	out    chan<- FileEvent

	mu      sync.Mutex
	pending map[string]*pendingPath
}

type pendingPath struct {
	op    rawOp
	first bool // true once any op has been recorded for this path since last flush
	timer *time.Timer
}

func newDebouncer(window time.Duration, out chan<- FileEvent) *debouncer {
	return &debouncer{window: window, out: out, pending: make(map[string]*pendingPath)}
}

// add records a raw operation for path, (re)scheduling its flush.
func (d *debouncer) add(path string, op rawOp) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[path]
	if !ok {
		p = &pendingPath{}
		d.pending[path] = p
	} else {
		op = coalesce(p.op, op, p.first)
		p.timer.Stop()
	}
	p.op = op
	p.first = true
	p.timer = time.AfterFunc(d.window, func() { d.flush(path) })
}

// coalesce resolves two operations observed for the same path into one.
// prevSeen guards against coalescing on the very first observation.
func coalesce(prev, next rawOp, prevSeen bool) rawOp {
	if !prevSeen {
		return next
	}
	switch {
	case prev == opCreate && next == opWrite:
		return opCreate
	case prev == opCreate && next == opRemove:
		return opNone
	case prev == opWrite && next == opRemove:
		return opRemove
	case prev == opRemove && next == opCreate:
		return opWrite // treated as CHANGED, not ADDED
	default:
		return next
	}
}

func (d *debouncer) flush(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	op := p.op
	d.mu.Unlock()

	var evType EventType
	switch op {
	case opCreate:
		evType = FileAdded
	case opWrite:
		evType = FileChanged
	case opRemove:
		evType = FileDeleted
	case opNone:
		return
	default:
		return
	}

	d.out <- FileEvent{Path: path, Type: evType, Timestamp: time.Now()}
}

// stop cancels all pending timers without flushing them.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.pending {
		p.timer.Stop()
	}
	d.pending = make(map[string]*pendingPath)
}
