package analysis

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/errors"
	"github.com/tsalo/fieldscan/internal/progress"
)

// DispatchConfig carries one batch dispatch.
type DispatchConfig struct {
	Files         []string
	OutDir        string
	MinConfidence float64
	Workers       int
	Detector      detector.Detector
	Progress      progress.Sink // nil disables progress reporting
}

// Dispatch analyzes every file in cfg and returns the per-file output
// locations that were produced.
//
// With Workers <= 1 files run sequentially in input order and locations come
// back in that order. With more workers, files are distributed across a
// bounded pool and locations come back in completion order; callers must not
// assume input order in parallel mode. That trade-off buys throughput on
// multi-hour batches and is deliberate.
//
// A failing file never halts the batch. After every file has been attempted,
// the failures are returned together as a *BatchError alongside the
// locations that did succeed.
//
// Cancelling ctx stops new files from being dispatched; calls already inside
// the detector run to completion (bounded by the per-file timeout), and
// their outputs remain valid and are returned.
func Dispatch(ctx context.Context, cfg *DispatchConfig) ([]string, error) {
	sink := cfg.Progress
	if sink == nil {
		sink = progress.NopSink{}
	}

	if cfg.Workers <= 1 {
		return dispatchSequential(ctx, cfg, sink)
	}
	return dispatchParallel(ctx, cfg, sink)
}

func dispatchSequential(ctx context.Context, cfg *DispatchConfig, sink progress.Sink) ([]string, error) {
	total := len(cfg.Files)
	locations := make([]string, 0, total)
	var failures []*FileError
	completed := 0

	for _, file := range cfg.Files {
		if ctx.Err() != nil {
			break
		}

		location, err := AnalyzeFile(context.WithoutCancel(ctx), cfg.Detector, file, cfg.OutDir, cfg.MinConfidence)
		completed++
		if err != nil {
			failures = append(failures, asFileError(file, err))
		} else {
			locations = append(locations, location)
		}
		sink.Report(progress.Event{Completed: completed, Total: total, Path: file, Err: err})
	}

	return locations, batchError(failures)
}

func dispatchParallel(ctx context.Context, cfg *DispatchConfig, sink progress.Sink) ([]string, error) {
	total := len(cfg.Files)

	var mu sync.Mutex
	locations := make([]string, 0, total)
	var failures []*FileError
	completed := 0

	var g errgroup.Group
	g.SetLimit(cfg.Workers)

	for _, file := range cfg.Files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// The batch may have been cancelled while this task waited for
			// a worker slot.
			if ctx.Err() != nil {
				return nil
			}

			location, err := AnalyzeFile(context.WithoutCancel(ctx), cfg.Detector, file, cfg.OutDir, cfg.MinConfidence)

			mu.Lock()
			defer mu.Unlock()
			completed++
			if err != nil {
				failures = append(failures, asFileError(file, err))
			} else {
				locations = append(locations, location)
			}
			// Reported under the lock so completed counts reach the sink in
			// strictly increasing order.
			sink.Report(progress.Event{Completed: completed, Total: total, Path: file, Err: err})
			return nil
		})
	}

	_ = g.Wait() // tasks record failures instead of returning them

	return locations, batchError(failures)
}

func asFileError(file string, err error) *FileError {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe
	}
	return &FileError{Path: file, Err: err}
}

// batchError returns a typed nil-free error so callers can test err == nil.
func batchError(failures []*FileError) error {
	if len(failures) == 0 {
		return nil
	}
	return &BatchError{Failures: failures}
}
