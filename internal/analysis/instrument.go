package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/tsalo/fieldscan/internal/audiofile"
	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/observability"
	"github.com/tsalo/fieldscan/internal/progress"
)

// instrumented decorates a Detector with the batch run's per-file concerns:
// optional header validation before the detector is invoked, timing metrics,
// and retention of each file's detections for the post-write hooks.
//
// Retention is keyed by path and consumed exactly once by the runner's sink;
// the map never grows past the number of in-flight files.
type instrumented struct {
	inner    detector.Detector
	validate bool
	metrics  *observability.Metrics

	mu     sync.Mutex
	byFile map[string][]detector.Detection
	total  int
}

func newInstrumented(inner detector.Detector, validate bool, m *observability.Metrics) *instrumented {
	return &instrumented{
		inner:    inner,
		validate: validate,
		metrics:  m,
		byFile:   make(map[string][]detector.Detection),
	}
}

// Analyze validates the file when configured, then delegates to the inner
// detector. Validation failures are per-file failures like any other; they
// never halt the batch.
func (d *instrumented) Analyze(ctx context.Context, path string, minConfidence float64) ([]detector.Detection, error) {
	if d.validate {
		if err := audiofile.Validate(path); err != nil {
			return nil, err
		}
	}

	if d.metrics != nil {
		d.metrics.Batch.WorkerStarted()
		defer d.metrics.Batch.WorkerFinished()
	}

	start := time.Now()
	detections, err := d.inner.Analyze(ctx, path, minConfidence)
	if d.metrics != nil {
		d.metrics.Detector.RecordAnalyze(time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.byFile[path] = detections
	d.total += len(detections)
	d.mu.Unlock()

	return detections, nil
}

// Describe passes through the inner detector's description.
func (d *instrumented) Describe() string {
	return d.inner.Describe()
}

// take removes and returns the retained detections for path.
func (d *instrumented) take(path string) []detector.Detection {
	d.mu.Lock()
	defer d.mu.Unlock()
	detections := d.byFile[path]
	delete(d.byFile, path)
	return detections
}

// totalDetections returns the running count across all analyzed files.
func (d *instrumented) totalDetections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// runnerSink intercepts the dispatcher's per-file completion events to run
// the post-write side effects, then forwards each event to the user's sink.
type runnerSink struct {
	runner  *Runner
	runID   string
	capture *instrumented
	next    progress.Sink
}

func (s *runnerSink) Report(e progress.Event) {
	if e.Err == nil {
		s.runner.afterFile(s.runID, e.Path, s.capture.take(e.Path))
	} else if s.runner.metrics != nil {
		s.runner.metrics.Batch.RecordFileProcessed("failure")
	}
	s.next.Report(e)
}
