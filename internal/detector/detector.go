// Package detector invokes the external detection model on single audio files.
package detector

import "context"

// Detection is one scored acoustic event reported for a file.
type Detection struct {
	Start      float64 // seconds from the beginning of the recording
	End        float64 // seconds from the beginning of the recording
	Label      string  // common name of the detected species
	Confidence float64 // model confidence, 0..1
}

// Detector analyzes one audio file and returns every detection scored at or
// above minConfidence. Implementations must be safe for concurrent use: the
// batch dispatcher calls Analyze from multiple workers at once.
type Detector interface {
	Analyze(ctx context.Context, path string, minConfidence float64) ([]Detection, error)

	// Describe identifies the detector in logs and run records.
	Describe() string
}
