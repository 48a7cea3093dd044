package filesync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleksclark/editorbind/internal/pubsub"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) (*Watcher, <-chan pubsub.Event[Update]) {
	t.Helper()
	w := New(path, WithWait(20*time.Millisecond))
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { w.Stop() })
	return w, w.Subscribe(t.Context())
}

func waitUpdate(t *testing.T, updates <-chan pubsub.Event[Update]) Update {
	t.Helper()
	select {
	case ev, ok := <-updates:
		require.True(t, ok, "subscription closed")
		require.Equal(t, EventUpdated, ev.Type)
		return ev.Payload
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for update")
		return Update{}
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "value.md")
	require.NoError(t, os.WriteFile(path, []byte("# hello"), 0o644))

	data, err := New(path).Read()
	require.NoError(t, err)
	require.Equal(t, "# hello", data)

	_, err = New(filepath.Join(t.TempDir(), "missing.md")).Read()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file watching test in short mode")
	}
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "value.md")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	w, updates := startWatcher(t, path)
	_, err := w.Read()
	require.NoError(t, err)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0o644))

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	update := waitUpdate(t, updates)
	require.Equal(t, path, update.Path)
	require.Equal(t, "two", update.Data)

	// Several quick writes collapse into one update with the final content.
	for _, s := range []string{"a", "ab", "abc"} {
		require.NoError(t, os.WriteFile(path, []byte(s), 0o644))
	}
	require.Equal(t, "abc", waitUpdate(t, updates).Data)

	select {
	case ev := <-updates:
		t.Fatalf("unexpected update %q", ev.Payload.Data)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchCreatedFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file watching test in short mode")
	}
	t.Parallel()

	path := filepath.Join(t.TempDir(), "later.md")
	_, updates := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("created"), 0o644))
	require.Equal(t, "created", waitUpdate(t, updates).Data)
}

func TestUnchangedContentIsSkipped(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "value.md")
	require.NoError(t, os.WriteFile(path, []byte("same"), 0o644))

	w := New(path)
	updates := w.Subscribe(context.Background())
	_, err := w.Read()
	require.NoError(t, err)

	w.publish()
	require.Empty(t, updates)

	require.NoError(t, os.WriteFile(path, []byte("different"), 0o644))
	w.publish()
	require.Len(t, updates, 1)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "value.md")
	w := New(path)
	updates := w.Subscribe(context.Background())

	require.NoError(t, w.Start(context.Background()))
	require.ErrorIs(t, w.Start(context.Background()), ErrStarted)
	require.NoError(t, w.Stop())

	_, ok := <-updates
	require.False(t, ok)
}

func TestStartMissingDirectory(t *testing.T) {
	t.Parallel()

	w := New(filepath.Join(t.TempDir(), "nope", "value.md"))
	require.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
}
