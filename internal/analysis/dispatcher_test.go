package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/merge"
	"github.com/tsalo/fieldscan/internal/progress"
)

// recordingSink captures progress events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []progress.Event
}

func (s *recordingSink) Report(e progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) snapshot() []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progress.Event(nil), s.events...)
}

// cancelingSink cancels the batch after it has seen n events.
type cancelingSink struct {
	mu     sync.Mutex
	after  int
	cancel context.CancelFunc
	seen   int
}

func (s *cancelingSink) Report(progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen++
	if s.seen == s.after {
		s.cancel()
	}
}

func batchFiles(dir string, names ...string) []string {
	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(dir, name)
	}
	return files
}

func TestDispatchSequentialPreservesInputOrder(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	files := batchFiles("/data/site", "c.wav", "a.wav", "b.wav")
	mock := &detector.Mock{}

	locations, err := Dispatch(t.Context(), &DispatchConfig{
		Files:    files,
		OutDir:   outDir,
		Workers:  1,
		Detector: mock,
	})
	require.NoError(t, err)

	want := []string{
		filepath.Join(outDir, "site", "c.csv"),
		filepath.Join(outDir, "site", "a.csv"),
		filepath.Join(outDir, "site", "b.csv"),
	}
	assert.Equal(t, want, locations, "sequential mode must preserve input order")
	assert.Equal(t, []string{"c.wav", "a.wav", "b.wav"}, mock.Calls())
}

func TestDispatchParallelBoundedWorkers(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	files := batchFiles("/data/site",
		"a.wav", "b.wav", "c.wav", "d.wav", "e.wav", "f.wav", "g.wav", "h.wav")
	mock := &detector.Mock{Delay: 20 * time.Millisecond}

	locations, err := Dispatch(t.Context(), &DispatchConfig{
		Files:    files,
		OutDir:   outDir,
		Workers:  3,
		Detector: mock,
	})
	require.NoError(t, err)
	assert.Len(t, locations, len(files))
	assert.LessOrEqual(t, mock.MaxActive(), 3, "worker pool must stay bounded")
	assert.Greater(t, mock.MaxActive(), 1, "parallel mode should overlap work")
}

func TestDispatchParallelReturnsCompletionOrder(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	files := batchFiles("/data/site", "slow.wav", "fast.wav")
	mock := &detector.Mock{
		Delays: map[string]time.Duration{
			"slow.wav": 200 * time.Millisecond,
			"fast.wav": 10 * time.Millisecond,
		},
	}

	locations, err := Dispatch(t.Context(), &DispatchConfig{
		Files:    files,
		OutDir:   outDir,
		Workers:  2,
		Detector: mock,
	})
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, filepath.Join(outDir, "site", "fast.csv"), locations[0],
		"first finished comes back first")
}

func TestDispatchParallelAggregatesFailures(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	files := batchFiles("/data/site", "a.wav", "bad.wav", "c.wav", "d.wav")
	mock := &detector.Mock{
		Errs: map[string]error{"bad.wav": errors.New("unreadable audio")},
	}

	locations, err := Dispatch(t.Context(), &DispatchConfig{
		Files:    files,
		OutDir:   outDir,
		Workers:  4,
		Detector: mock,
	})

	assert.Len(t, locations, 3, "healthy files still produce outputs")
	for _, location := range locations {
		_, statErr := os.Stat(location)
		assert.NoError(t, statErr)
	}

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Len(t, batchErr.Failures, 1)
	assert.Equal(t, filepath.Join("/data/site", "bad.wav"), batchErr.Failures[0].Path)
	assert.Contains(t, batchErr.Failures[0].Err.Error(), "unreadable audio")
}

func TestDispatchSequentialContinuesPastFailure(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	files := batchFiles("/data/site", "a.wav", "bad.wav", "c.wav")
	mock := &detector.Mock{
		Errs: map[string]error{"bad.wav": errors.New("boom")},
	}

	locations, err := Dispatch(t.Context(), &DispatchConfig{
		Files:    files,
		OutDir:   outDir,
		Workers:  1,
		Detector: mock,
	})

	assert.Equal(t, []string{
		filepath.Join(outDir, "site", "a.csv"),
		filepath.Join(outDir, "site", "c.csv"),
	}, locations)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Len(t, batchErr.Failures, 1)
}

func TestDispatchProgressEventsMonotonic(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		outDir := t.TempDir()
		files := batchFiles("/data/site", "a.wav", "b.wav", "c.wav", "d.wav", "e.wav")
		sink := &recordingSink{}

		_, err := Dispatch(t.Context(), &DispatchConfig{
			Files:    files,
			OutDir:   outDir,
			Workers:  workers,
			Detector: &detector.Mock{},
			Progress: sink,
		})
		require.NoError(t, err)

		events := sink.snapshot()
		require.Len(t, events, len(files), "workers=%d", workers)
		for i, e := range events {
			assert.Equal(t, i+1, e.Completed, "workers=%d", workers)
			assert.Equal(t, len(files), e.Total, "workers=%d", workers)
		}
	}
}

func TestDispatchCancellationStopsNewFiles(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	files := batchFiles("/data/site", "a.wav", "b.wav", "c.wav")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	sink := &cancelingSink{after: 1, cancel: cancel}

	locations, err := Dispatch(ctx, &DispatchConfig{
		Files:    files,
		OutDir:   outDir,
		Workers:  1,
		Detector: &detector.Mock{},
		Progress: sink,
	})
	require.NoError(t, err, "cancellation alone is not a batch failure")
	assert.Len(t, locations, 1, "completed outputs remain valid, no new files dispatched")
}

func TestDispatchEmptyBatch(t *testing.T) {
	t.Parallel()

	locations, err := Dispatch(t.Context(), &DispatchConfig{
		OutDir:   t.TempDir(),
		Workers:  4,
		Detector: &detector.Mock{},
	})
	require.NoError(t, err)
	assert.Empty(t, locations)
}

// Workers must be gone after Wait returns, including when the batch was
// cancelled mid-flight.
func TestDispatchNoGoroutineLeaks(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)

	outDir := t.TempDir()
	files := batchFiles("/data/site", "a.wav", "b.wav", "c.wav", "d.wav")

	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancelingSink{after: 2, cancel: cancel}

	_, err := Dispatch(ctx, &DispatchConfig{
		Files:    files,
		OutDir:   outDir,
		Workers:  2,
		Detector: &detector.Mock{Delay: 5 * time.Millisecond},
		Progress: sink,
	})
	require.NoError(t, err)
	cancel()
}

// Full pipeline: two recordings, one with detections and one without, then a
// merge over the output root.
func TestDispatchThenMerge(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	mock := &detector.Mock{
		Results: map[string][]detector.Detection{
			"a.wav": {
				{Start: 0, End: 3, Label: "Common Loon", Confidence: 0.91},
				{Start: 9, End: 12, Label: "Veery", Confidence: 0.3},
			},
		},
	}

	locations, err := Dispatch(t.Context(), &DispatchConfig{
		Files:         []string{"/rec/A/a.wav", "/rec/B/b.wav"},
		OutDir:        outDir,
		MinConfidence: 0.1,
		Workers:       1,
		Detector:      mock,
	})
	require.NoError(t, err)
	require.Len(t, locations, 2)

	// b.wav produced a header-only file.
	raw, err := os.ReadFile(filepath.Join(outDir, "B", "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "file,start_s,end_s,label,confidence\n", string(raw))

	master, _, err := merge.Compile(outDir, "master_results.csv")
	require.NoError(t, err)

	raw, err = os.ReadFile(master)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3, "one header plus the two detections from a.wav")
	assert.Equal(t, "file,start_s,end_s,label,confidence", lines[0])
	assert.Contains(t, lines[1], "a.wav")
	assert.Contains(t, lines[2], "a.wav")
}
