package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := New(filepath.Join(t.TempDir(), "data"), filepath.Join(t.TempDir(), "speakers"))
	require.NoError(t, err)
	return lib
}

func TestNewBasenameUnique(t *testing.T) {
	lib := newTestLibrary(t)
	a := lib.NewBasename()
	b := lib.NewBasename()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "-")
}

func TestSaveAndList(t *testing.T) {
	lib := newTestLibrary(t)

	base := lib.NewBasename()
	require.NoError(t, lib.SaveAudio(base, []byte("RIFF....")))
	require.NoError(t, lib.SaveText(base, "once upon a time"))

	entries, err := lib.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, base, entries[0].Basename)
	assert.Equal(t, base+".wav", entries[0].AudioFile)
	assert.True(t, entries[0].HasText)
	assert.False(t, entries[0].HasImage)
}

func TestListNewestFirst(t *testing.T) {
	lib := newTestLibrary(t)

	require.NoError(t, lib.SaveAudio("older", []byte("a")))
	older := lib.AudioPath("older")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	require.NoError(t, lib.SaveAudio("newer", []byte("b")))

	entries, err := lib.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "newer", entries[0].Basename)
	assert.Equal(t, "older", entries[1].Basename)
}

func TestListCachesUntilInvalidate(t *testing.T) {
	lib := newTestLibrary(t)
	require.NoError(t, lib.SaveAudio("one", []byte("a")))

	entries, err := lib.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Written behind the cache's back: not visible until invalidated.
	require.NoError(t, os.WriteFile(lib.AudioPath("two"), []byte("b"), 0o644))
	entries, err = lib.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	lib.Invalidate()
	entries, err = lib.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDelete(t *testing.T) {
	lib := newTestLibrary(t)

	base := "victim"
	require.NoError(t, lib.SaveAudio(base, []byte("a")))
	require.NoError(t, lib.SaveText(base, "text"))

	require.NoError(t, lib.Delete(base))

	entries, err := lib.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Deleting again is a no-op.
	assert.NoError(t, lib.Delete(base))
}

func TestSpeakers(t *testing.T) {
	lib := newTestLibrary(t)

	for _, name := range []string{"zoe.wav", "adam.wav", "notes.txt"} {
		path := filepath.Join(lib.speakerDir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	speakers, err := lib.Speakers()
	require.NoError(t, err)
	assert.Equal(t, []string{"adam", "zoe"}, speakers)

	path, err := lib.SpeakerPath("adam")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib.speakerDir, "adam.wav"), path)

	_, err = lib.SpeakerPath("ghost")
	assert.Error(t, err)
}

func TestWatchInvalidates(t *testing.T) {
	lib := newTestLibrary(t)
	require.NoError(t, lib.SaveAudio("one", []byte("a")))

	_, err := lib.List()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(lib.AudioPath("two"), []byte("b"), 0o644))

	require.Eventually(t, func() bool {
		entries, err := lib.List()
		return err == nil && len(entries) == 2
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
