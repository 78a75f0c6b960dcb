package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReindexesChangedFiles(t *testing.T) {
	dir := t.TempDir()

	index, err := trees.NewMultiIndex()
	require.NoError(t, err)

	watcher, err := NewWatcher(index, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx, dir))

	target := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(target, []byte("first"), 0o644))

	waitForIndexed(t, watcher, trees.NormalizePath(target))

	entry, err := index.FindByName("note.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len("first")), entry.Size)

	// A later write re-indexes the same path with the new size.
	require.NoError(t, os.WriteFile(target, []byte("second draft"), 0o644))
	waitForIndexed(t, watcher, trees.NormalizePath(target))

	entry, err = index.FindByName("note.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len("second draft")), entry.Size)
	assert.Equal(t, int64(1), index.Size())
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()

	index, err := trees.NewMultiIndex()
	require.NoError(t, err)

	watcher, err := NewWatcher(index, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx, dir))

	sub := filepath.Join(dir, "inbox")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Give the watcher a moment to add the new directory to its watch set.
	time.Sleep(500 * time.Millisecond)

	target := filepath.Join(sub, "letter.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0o644))

	waitForIndexed(t, watcher, trees.NormalizePath(target))

	_, err = index.FindByName("letter.txt")
	assert.NoError(t, err)
}

func TestWatcherCloseStopsLoop(t *testing.T) {
	dir := t.TempDir()

	index, err := trees.NewMultiIndex()
	require.NoError(t, err)

	watcher, err := NewWatcher(index)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx, dir))

	require.NoError(t, watcher.Close())

	// Writes after close must not be indexed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(0), index.Size())
}

func waitForIndexed(t *testing.T, watcher *Watcher, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-watcher.Indexed():
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s to be indexed", want)
		}
	}
}
