package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitEvent(t *testing.T, ch <-chan FileEvent, timeout time.Duration) FileEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return FileEvent{}
	}
}

func TestDebouncesRapidWritesIntoOneChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "debounce.txt")
	require.NoError(t, os.WriteFile(target, []byte("v0"), 0o644))

	w := New(dir, Options{DebounceWindow: 150 * time.Millisecond, RespectIgnoreFiles: false})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	<-w.Ready()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("update"), 0o644))
		time.Sleep(30 * time.Millisecond)
	}

	ev := waitEvent(t, w.Events(), 2*time.Second)
	assert.Equal(t, "debounce.txt", ev.Path)
	assert.Equal(t, FileChanged, ev.Type)

	select {
	case extra := <-w.Events():
		t.Fatalf("expected exactly one coalesced event, got extra: %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewFileEmitsAdded(t *testing.T) {
	dir := t.TempDir()

	w := New(dir, Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	<-w.Ready()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.go"), []byte("package x"), 0o644))

	ev := waitEvent(t, w.Events(), 2*time.Second)
	assert.Equal(t, FileAdded, ev.Type)
	assert.Equal(t, "new.go", ev.Path)
}

func TestDeletedFileEmitsDeleted(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "gone.go")
	require.NoError(t, os.WriteFile(target, []byte("package x"), 0o644))

	w := New(dir, Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	<-w.Ready()

	require.NoError(t, os.Remove(target))

	ev := waitEvent(t, w.Events(), 2*time.Second)
	assert.Equal(t, FileDeleted, ev.Type)
	assert.Equal(t, "gone.go", ev.Path)
}

func TestRenameObservedAsDeleteThenAdd(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.go")
	newPath := filepath.Join(dir, "renamed.go")
	require.NoError(t, os.WriteFile(oldPath, []byte("package x"), 0o644))

	w := New(dir, Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	<-w.Ready()

	require.NoError(t, os.Rename(oldPath, newPath))

	seen := map[string]EventType{}
	for i := 0; i < 2; i++ {
		ev := waitEvent(t, w.Events(), 2*time.Second)
		seen[ev.Path] = ev.Type
	}
	assert.Equal(t, FileDeleted, seen["old.go"])
	assert.Equal(t, FileAdded, seen["renamed.go"])
}

func TestExcludedDirNeverWatched(t *testing.T) {
	dir := t.TempDir()
	excluded := filepath.Join(dir, "node_modules")
	require.NoError(t, os.Mkdir(excluded, 0o755))

	w := New(dir, Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	<-w.Ready()

	require.NoError(t, os.WriteFile(filepath.Join(excluded, "lib.js"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event for excluded dir, got %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestStartTwiceFailsAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, Options{})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	err := w.Start(context.Background())
	assert.Error(t, err)
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, Options{})
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsWatching())
}
