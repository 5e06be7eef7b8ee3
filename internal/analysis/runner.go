package analysis

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tsalo/fieldscan/internal/audiofile"
	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/datastore"
	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/errors"
	"github.com/tsalo/fieldscan/internal/merge"
	"github.com/tsalo/fieldscan/internal/mqtt"
	"github.com/tsalo/fieldscan/internal/observability"
	"github.com/tsalo/fieldscan/internal/observation"
	"github.com/tsalo/fieldscan/internal/progress"
)

// publishTimeout bounds the broker round trip for one result message.
const publishTimeout = 10 * time.Second

// Runner wires discovery, dispatch, persistence, publishing, and merge into
// one batch run. The datastore, metrics, and publisher are optional; a nil
// value disables that concern without changing the flow.
type Runner struct {
	settings  *conf.Settings
	detector  detector.Detector
	store     datastore.Interface
	metrics   *observability.Metrics
	publisher mqtt.Client
	sink      progress.Sink

	mu       sync.Mutex
	watchRun *datastore.BatchRun // session run backing ProcessFile
}

// BatchResult summarizes one completed batch run.
type BatchResult struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	FilesTotal  int
	FilesFailed int
	Detections  int
	Locations   []string
	MasterPath  string // empty unless auto-merge ran
	Failures    []*FileError
}

// Duration returns the wall-clock time the run took.
func (r *BatchResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Succeeded returns the number of files analyzed without error.
func (r *BatchResult) Succeeded() int {
	return r.FilesTotal - r.FilesFailed
}

// NewRunner assembles a batch runner. store, m, and publisher may be nil.
func NewRunner(settings *conf.Settings, det detector.Detector, store datastore.Interface, m *observability.Metrics, publisher mqtt.Client, sink progress.Sink) *Runner {
	if sink == nil {
		sink = progress.NopSink{}
	}
	return &Runner{
		settings:  settings,
		detector:  det,
		store:     store,
		metrics:   m,
		publisher: publisher,
		sink:      sink,
	}
}

// Run executes one full batch: discover files, dispatch them across the
// configured workers, then compile the master output when auto-merge is on.
//
// Per-file failures do not abort the run; they come back inside the
// BatchResult and as a *BatchError. The result is non-nil whenever discovery
// succeeded, so callers can report partial progress alongside the error.
func (r *Runner) Run(ctx context.Context) (*BatchResult, error) {
	result := &BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := GetLogger()

	files, err := audiofile.Resolve(r.settings.Input.Path, r.settings.Input.FolderPattern)
	if err != nil {
		return nil, err
	}
	result.FilesTotal = len(files)

	if r.metrics != nil {
		r.metrics.Batch.SetFilesDiscovered(len(files))
	}
	log.Info("batch run starting",
		"run_id", result.RunID,
		"files", len(files),
		"workers", r.settings.Batch.Workers,
		"min_confidence", r.settings.Analyzer.MinConfidence)

	run := r.newRunRecord(result.RunID, r.settings.Batch.Workers, len(files))
	r.saveRun(run)

	capture := newInstrumented(r.detector, r.settings.Input.Validate, r.metrics)

	locations, dispatchErr := Dispatch(ctx, &DispatchConfig{
		Files:         files,
		OutDir:        r.settings.Output.Path,
		MinConfidence: r.settings.Analyzer.MinConfidence,
		Workers:       r.settings.Batch.Workers,
		Detector:      capture,
		Progress:      &runnerSink{runner: r, runID: result.RunID, capture: capture, next: r.sink},
	})

	result.Locations = locations
	result.Detections = capture.totalDetections()

	var batchErr *BatchError
	if errors.As(dispatchErr, &batchErr) {
		result.Failures = batchErr.Failures
		result.FilesFailed = len(batchErr.Failures)
	}

	var mergeErr error
	if r.settings.Output.AutoMerge {
		result.MasterPath, mergeErr = r.compileMaster()
	}

	result.CompletedAt = time.Now()
	if r.metrics != nil {
		r.metrics.Batch.RecordBatchDuration(result.Duration().Seconds())
	}

	run.CompletedAt = result.CompletedAt
	run.FilesFailed = result.FilesFailed
	run.Detections = result.Detections
	r.saveRun(run)

	r.publishBatchSummary(result)

	log.Info("batch run finished",
		"run_id", result.RunID,
		"succeeded", result.Succeeded(),
		"failed", result.FilesFailed,
		"detections", result.Detections,
		"duration", result.Duration().String())

	return result, errors.Join(dispatchErr, mergeErr)
}

// ProcessFile runs a single file through the same flow a batch file gets:
// optional validation, detection, CSV write, persistence, publishing, and
// metrics. Watch mode feeds settled files through here. Results are filed
// under a session run that opens on first use and closes with FinishSession.
func (r *Runner) ProcessFile(ctx context.Context, file string) (string, error) {
	run := r.sessionRun()

	fail := func(err error) (string, error) {
		if r.metrics != nil {
			r.metrics.Batch.RecordFileProcessed("failure")
		}
		r.recordSessionFile(run, 0, false)
		return "", &FileError{Path: file, Err: err}
	}

	if r.settings.Input.Validate {
		if err := audiofile.Validate(file); err != nil {
			return fail(err)
		}
	}

	start := time.Now()
	detections, err := r.detector.Analyze(ctx, file, r.settings.Analyzer.MinConfidence)
	if r.metrics != nil {
		r.metrics.Detector.RecordAnalyze(time.Since(start).Seconds(), err)
	}
	if err != nil {
		return fail(err)
	}

	location := resultLocation(r.settings.Output.Path, file)
	if err := observation.WriteCSV(observation.BuildRecords(detections, file), location); err != nil {
		return fail(err)
	}

	r.afterFile(run.RunID, file, detections)
	r.recordSessionFile(run, len(detections), true)

	if r.settings.Output.AutoMerge {
		if _, err := r.compileMaster(); err != nil {
			GetLogger().Error("auto-merge after file failed", "file", file, "error", err)
		}
	}

	return location, nil
}

// FinishSession stamps the watch session run complete. Safe to call when no
// file was ever processed.
func (r *Runner) FinishSession() {
	r.mu.Lock()
	run := r.watchRun
	r.watchRun = nil
	r.mu.Unlock()

	if run == nil {
		return
	}
	run.CompletedAt = time.Now()
	r.saveRun(run)
}

// sessionRun returns the watch session's run record, opening it on first use.
func (r *Runner) sessionRun() *datastore.BatchRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchRun == nil {
		r.watchRun = r.newRunRecord(uuid.NewString(), 1, 0)
		r.saveRun(r.watchRun)
	}
	return r.watchRun
}

// recordSessionFile folds one processed file into the session counters.
func (r *Runner) recordSessionFile(run *datastore.BatchRun, detections int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.FilesTotal++
	if !ok {
		run.FilesFailed++
	}
	run.Detections += detections
	r.saveRun(run)
}

// afterFile performs the post-write side effects for one analyzed file:
// batch metrics, datastore persistence, and the per-file MQTT summary.
// Every side effect is best effort; the CSV on disk is the primary output
// and a failing database or broker must not fail the file.
func (r *Runner) afterFile(runID, file string, detections []detector.Detection) {
	if r.metrics != nil {
		r.metrics.Batch.RecordFileProcessed("success")
		r.metrics.Batch.RecordDetections(len(detections))
	}

	if r.store != nil {
		if err := r.store.SaveResults(runID, toResults(runID, file, detections)); err != nil {
			GetLogger().Error("persisting results failed", "file", file, "error", err)
		}
	}

	if r.publisher != nil {
		r.publishFileSummary(runID, file, detections)
	}
}

// newRunRecord builds the initial datastore row for a run.
func (r *Runner) newRunRecord(runID string, workers, filesTotal int) *datastore.BatchRun {
	return &datastore.BatchRun{
		RunID:         runID,
		Node:          r.settings.Main.Name,
		StartedAt:     time.Now(),
		Workers:       workers,
		MinConfidence: r.settings.Analyzer.MinConfidence,
		FilesTotal:    filesTotal,
	}
}

func (r *Runner) saveRun(run *datastore.BatchRun) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRun(run); err != nil {
		GetLogger().Error("persisting run record failed", "run_id", run.RunID, "error", err)
	}
}

// compileMaster rebuilds the master CSV from the output tree.
func (r *Runner) compileMaster() (string, error) {
	masterPath, stats, err := merge.Compile(r.settings.Output.Path, r.settings.Output.MasterName)
	if err != nil {
		return "", err
	}
	if r.metrics != nil {
		r.metrics.Batch.RecordMerge(stats.Rows, stats.Skipped)
	}
	return masterPath, nil
}

func (r *Runner) publishFileSummary(runID, file string, detections []detector.Detection) {
	summary := mqtt.FileSummary{
		RunID:      runID,
		File:       filepath.Base(file),
		Detections: len(detections),
	}
	if top := topDetection(detections); top != nil {
		summary.TopLabel = top.Label
		summary.TopConfidence = top.Confidence
	}

	payload, err := summary.Encode()
	if err != nil {
		GetLogger().Error("encoding file summary failed", "file", file, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.publisher.Publish(ctx, r.settings.MQTT.Topic, payload); err != nil {
		GetLogger().Warn("publishing file summary failed", "file", file, "error", err)
	}
}

func (r *Runner) publishBatchSummary(result *BatchResult) {
	if r.publisher == nil {
		return
	}

	payload, err := mqtt.BatchSummary{
		RunID:       result.RunID,
		Node:        r.settings.Main.Name,
		Files:       result.FilesTotal,
		Failed:      result.FilesFailed,
		Detections:  result.Detections,
		Duration:    result.Duration().String(),
		CompletedAt: result.CompletedAt,
	}.Encode()
	if err != nil {
		GetLogger().Error("encoding batch summary failed", "run_id", result.RunID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.publisher.Publish(ctx, r.settings.MQTT.Topic, payload); err != nil {
		GetLogger().Warn("publishing batch summary failed", "run_id", result.RunID, "error", err)
	}
}

// toResults converts detections into datastore rows. The file column keeps
// the base name only, matching the CSV output.
func toResults(runID, file string, detections []detector.Detection) []datastore.Result {
	results := make([]datastore.Result, 0, len(detections))
	for _, d := range detections {
		results = append(results, datastore.Result{
			RunID:      runID,
			File:       filepath.Base(file),
			Start:      d.Start,
			End:        d.End,
			Label:      d.Label,
			Confidence: d.Confidence,
		})
	}
	return results
}

// topDetection returns the highest-confidence detection, or nil.
func topDetection(detections []detector.Detection) *detector.Detection {
	var top *detector.Detection
	for i := range detections {
		if top == nil || detections[i].Confidence > top.Confidence {
			top = &detections[i]
		}
	}
	return top
}
