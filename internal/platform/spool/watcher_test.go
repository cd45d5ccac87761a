package spool

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	r.paths = append(r.paths, filepath.Base(path))
	r.mu.Unlock()
	r.ch <- filepath.Base(path)
	return nil
}

func (r *recorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for spool file")
		return ""
	}
}

func TestWatcher_ProcessesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hl7"), []byte(msgB), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hl7"), []byte(msgA), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	rec := newRecorder()
	w, err := NewWatcher(dir, rec.handle, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, "a.hl7", rec.wait(t))
	assert.Equal(t, "b.hl7", rec.wait(t))
}

func TestWatcher_DebouncesNewFiles(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w, err := NewWatcher(dir, rec.handle, &WatcherOptions{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	path := filepath.Join(dir, "new.hl7")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString(msgA)
	require.NoError(t, err)
	_, err = f.WriteString("\r\n" + msgB)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.tmp"), []byte("x"), 0o644))

	assert.Equal(t, "new.hl7", rec.wait(t))

	// a burst of writes to one file is handed off once
	select {
	case p := <-rec.ch:
		t.Fatalf("unexpected second hand-off for %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), newRecorder().handle, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestNewWatcher_Invalid(t *testing.T) {
	_, err := NewWatcher(t.TempDir(), nil, nil)
	assert.Error(t, err)

	_, err = NewWatcher(t.TempDir(), newRecorder().handle, &WatcherOptions{Pattern: "["})
	assert.Error(t, err)
}
