package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tsalo/fieldscan/internal/errors"
)

// DetectorMetrics contains all Prometheus metrics related to detector calls.
type DetectorMetrics struct {
	AnalyzeDuration *prometheus.HistogramVec
	FailuresTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewDetectorMetrics creates a new instance of DetectorMetrics and registers
// it with the provided Prometheus registry.
func NewDetectorMetrics(registry *prometheus.Registry) (*DetectorMetrics, error) {
	m := &DetectorMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detector metrics: %w", err)
	}
	return m, nil
}

func (m *DetectorMetrics) initMetrics() {
	m.AnalyzeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldscan_detector_analyze_duration_seconds",
			Help:    "Time spent inside the external detector per file.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
		},
		[]string{"status"},
	)

	m.FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldscan_detector_failures_total",
			Help: "Total number of failed detector calls, partitioned by error category.",
		},
		[]string{"category"},
	)
}

// RecordAnalyze records the timing and outcome of one detector call.
func (m *DetectorMetrics) RecordAnalyze(durationSeconds float64, err error) {
	if err != nil {
		m.AnalyzeDuration.WithLabelValues("error").Observe(durationSeconds)
		m.FailuresTotal.WithLabelValues(categorize(err)).Inc()
		return
	}
	m.AnalyzeDuration.WithLabelValues("success").Observe(durationSeconds)
}

// categorize maps an error onto its enhanced-error category so failure
// counters group by cause rather than by message.
func categorize(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}

// Describe implements the prometheus.Collector interface.
func (m *DetectorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.AnalyzeDuration.Describe(ch)
	m.FailuresTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *DetectorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.AnalyzeDuration.Collect(ch)
	m.FailuresTotal.Collect(ch)
}
