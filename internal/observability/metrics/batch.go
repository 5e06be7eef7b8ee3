// Package metrics provides custom Prometheus metrics for fieldscan operations.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics contains all Prometheus metrics related to batch runs.
type BatchMetrics struct {
	FilesDiscovered     prometheus.Gauge
	FilesProcessedTotal *prometheus.CounterVec
	DetectionsTotal     prometheus.Counter
	BatchDuration       prometheus.Histogram
	ActiveWorkers       prometheus.Gauge
	MergeRowsTotal      prometheus.Counter
	MergeSourcesSkipped prometheus.Counter

	registry *prometheus.Registry
}

// NewBatchMetrics creates a new instance of BatchMetrics and registers it
// with the provided Prometheus registry.
func NewBatchMetrics(registry *prometheus.Registry) (*BatchMetrics, error) {
	m := &BatchMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register batch metrics: %w", err)
	}
	return m, nil
}

func (m *BatchMetrics) initMetrics() {
	m.FilesDiscovered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldscan_files_discovered",
			Help: "Number of audio files discovered by the most recent scan.",
		},
	)

	m.FilesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldscan_files_processed_total",
			Help: "Total number of files processed, partitioned by outcome.",
		},
		[]string{"status"},
	)

	m.DetectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldscan_detections_total",
			Help: "Total number of detections written to per-file results.",
		},
	)

	m.BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fieldscan_batch_duration_seconds",
			Help:    "Wall-clock duration of complete batch runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
		},
	)

	m.ActiveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldscan_active_workers",
			Help: "Number of analysis workers currently processing a file.",
		},
	)

	m.MergeRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldscan_merge_rows_total",
			Help: "Total number of data rows written into master results.",
		},
	)

	m.MergeSourcesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldscan_merge_sources_skipped_total",
			Help: "Total number of per-file results skipped as unreadable during merge.",
		},
	)
}

// RecordFileProcessed increments the processed counter for the outcome.
func (m *BatchMetrics) RecordFileProcessed(status string) {
	m.FilesProcessedTotal.WithLabelValues(status).Inc()
}

// RecordDetections adds n to the detection total.
func (m *BatchMetrics) RecordDetections(n int) {
	m.DetectionsTotal.Add(float64(n))
}

// RecordBatchDuration observes the duration of one completed batch run.
func (m *BatchMetrics) RecordBatchDuration(seconds float64) {
	m.BatchDuration.Observe(seconds)
}

// SetFilesDiscovered records the size of the most recent discovery result.
func (m *BatchMetrics) SetFilesDiscovered(count int) {
	m.FilesDiscovered.Set(float64(count))
}

// WorkerStarted marks one worker as busy.
func (m *BatchMetrics) WorkerStarted() {
	m.ActiveWorkers.Inc()
}

// WorkerFinished marks one worker as idle again.
func (m *BatchMetrics) WorkerFinished() {
	m.ActiveWorkers.Dec()
}

// RecordMerge records the outcome of one merge pass.
func (m *BatchMetrics) RecordMerge(rows, skipped int) {
	m.MergeRowsTotal.Add(float64(rows))
	m.MergeSourcesSkipped.Add(float64(skipped))
}

// Describe implements the prometheus.Collector interface.
func (m *BatchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.FilesDiscovered.Describe(ch)
	m.FilesProcessedTotal.Describe(ch)
	m.DetectionsTotal.Describe(ch)
	m.BatchDuration.Describe(ch)
	m.ActiveWorkers.Describe(ch)
	m.MergeRowsTotal.Describe(ch)
	m.MergeSourcesSkipped.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *BatchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.FilesDiscovered.Collect(ch)
	m.FilesProcessedTotal.Collect(ch)
	m.DetectionsTotal.Collect(ch)
	m.BatchDuration.Collect(ch)
	m.ActiveWorkers.Collect(ch)
	m.MergeRowsTotal.Collect(ch)
	m.MergeSourcesSkipped.Collect(ch)
}
