package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsalo/fieldscan/internal/conf"
)

// recordingHandler collects the paths the watcher hands over.
type recordingHandler struct {
	mu    sync.Mutex
	paths []string
}

func (h *recordingHandler) handle(_ context.Context, path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
	return path + ".csv", nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func watchSettings(dir string) *conf.Settings {
	s := &conf.Settings{}
	s.Input.Path = dir
	s.Watch.SettleTime = 60 * time.Millisecond
	s.Watch.Poll = 20 * time.Millisecond
	s.Watch.Cooldown = time.Minute
	return s
}

// startWatcher runs the watcher in the background and returns a stop func
// that cancels it and waits for Run to return.
func startWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop after cancel")
		}
	}
}

func waitFor(t *testing.T, h *recordingHandler, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.seen()) >= want
	}, 5*time.Second, 10*time.Millisecond, "expected %d handled file(s), got %v", want, h.seen())
}

func TestWatcherProcessesSettledFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	handler := &recordingHandler{}
	w, err := New(watchSettings(dir), handler.handle)
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	path := filepath.Join(dir, "arrival.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF-data"), 0o644))

	waitFor(t, handler, 1)
	assert.Contains(t, handler.seen()[0], "arrival.wav")
}

func TestWatcherWaitsForGrowingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	handler := &recordingHandler{}
	w, err := New(watchSettings(dir), handler.handle)
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	path := filepath.Join(dir, "growing.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	// Simulate a recorder still flushing: grow the file past several poll
	// intervals, then stop.
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("chunk of samples\n")
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(30 * time.Millisecond)
		assert.Empty(t, handler.seen(), "file must not dispatch while still growing")
	}
	require.NoError(t, f.Close())

	waitFor(t, handler, 1)
}

func TestWatcherCooldownSuppressesReanalysis(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	handler := &recordingHandler{}
	w, err := New(watchSettings(dir), handler.handle)
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	path := filepath.Join(dir, "repeat.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF-one"), 0o644))
	waitFor(t, handler, 1)

	// Touch the finished file again; the cooldown window must swallow it.
	require.NoError(t, os.WriteFile(path, []byte("RIFF-one-more"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Len(t, handler.seen(), 1, "re-touch within cooldown must not re-analyze")
}

func TestWatcherIgnoresUnsupportedExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	handler := &recordingHandler{}
	w, err := New(watchSettings(dir), handler.handle)
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("field notes"), 0o644))
	time.Sleep(250 * time.Millisecond)
	assert.Empty(t, handler.seen())
}

func TestWatcherPicksUpNewSubdirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	handler := &recordingHandler{}
	w, err := New(watchSettings(dir), handler.handle)
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	// A site folder arriving after the watch started, with a file inside.
	site := filepath.Join(dir, "site-03")
	require.NoError(t, os.Mkdir(site, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "dusk.flac"), []byte("fLaC-data"), 0o644))

	waitFor(t, handler, 1)
	assert.Contains(t, handler.seen()[0], "dusk.flac")
}

func TestWatcherDropsRemovedPendingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	handler := &recordingHandler{}
	w, err := New(watchSettings(dir), handler.handle)
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	path := filepath.Join(dir, "gone.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	require.NoError(t, os.Remove(path))

	time.Sleep(250 * time.Millisecond)
	assert.Empty(t, handler.seen(), "a file removed before settling must not dispatch")
}

func TestNewWatcherRejectsMissingDirectory(t *testing.T) {
	t.Parallel()

	s := watchSettings(filepath.Join(t.TempDir(), "nope"))
	_, err := New(s, (&recordingHandler{}).handle)
	require.Error(t, err)
}
