package detector

import (
	"context"
	"path/filepath"
	"sync"
	"time"
)

// Mock is a scripted Detector used by tests across packages. Results and
// errors are keyed by file base name; unknown files return no detections.
type Mock struct {
	Results map[string][]Detection
	Errs    map[string]error
	Delay   time.Duration            // artificial per-call latency
	Delays  map[string]time.Duration // per-file overrides of Delay

	mu        sync.Mutex
	calls     []string
	active    int
	maxActive int
}

func (m *Mock) Describe() string { return "mock" }

// Analyze returns the scripted outcome for the file, honoring context
// cancellation during the artificial delay and applying the confidence
// threshold the way the real analyzer does.
func (m *Mock) Analyze(ctx context.Context, path string, minConfidence float64) ([]Detection, error) {
	name := filepath.Base(path)

	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	delay := m.Delay
	if d, ok := m.Delays[name]; ok {
		delay = d
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := m.Errs[name]; err != nil {
		return nil, err
	}

	var out []Detection
	for _, det := range m.Results[name] {
		if det.Confidence >= minConfidence {
			out = append(out, det)
		}
	}
	return out, nil
}

// Calls returns the file base names Analyze has seen, in call order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MaxActive reports the highest number of Analyze calls that were in flight
// at the same time.
func (m *Mock) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}
