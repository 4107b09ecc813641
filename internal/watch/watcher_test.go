package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))

	var calls atomic.Int32
	changed := make(chan string, 4)
	w, err := New(100*time.Millisecond, func(p string) {
		calls.Add(1)
		changed <- p
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WatchFile(path))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case p := <-changed:
		want, _ := filepath.Abs(path)
		assert.Equal(t, want, p)
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")

	changed := make(chan string, 4)
	w, err := New(50*time.Millisecond, func(p string) { changed <- p })
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WatchFile(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))

	select {
	case p := <-changed:
		t.Fatalf("unexpected notification for %s", p)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_StopWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")

	changed := make(chan string, 4)
	w, err := New(50*time.Millisecond, func(p string) { changed <- p })
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WatchFile(path))
	w.StopWatching(path)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case p := <-changed:
		t.Fatalf("unexpected notification for %s", p)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_CloseDropsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")

	var calls atomic.Int32
	w, err := New(200*time.Millisecond, func(string) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.WatchFile(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.Close())

	time.Sleep(400 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
