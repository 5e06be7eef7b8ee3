package analysis

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/observation"
)

// AnalyzeFile runs the detector over one file and writes its results to
// <outDir>/<parent folder name>/<file stem>.csv, returning that location.
// A file yielding zero detections still gets a header-only CSV: the merge
// step needs to tell "processed, nothing found" apart from "never processed".
// Failures come back as a *FileError naming the offending file; there is no
// retry at this layer.
func AnalyzeFile(ctx context.Context, det detector.Detector, file, outDir string, minConfidence float64) (string, error) {
	detections, err := det.Analyze(ctx, file, minConfidence)
	if err != nil {
		return "", &FileError{Path: file, Err: err}
	}

	location := resultLocation(outDir, file)
	if err := observation.WriteCSV(observation.BuildRecords(detections, file), location); err != nil {
		return "", &FileError{Path: file, Err: err}
	}
	return location, nil
}

// resultLocation namespaces per-file results by the recording's parent
// folder, which is how field deployments group recordings by site.
func resultLocation(outDir, file string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	parent := filepath.Base(filepath.Dir(file))
	return filepath.Join(outDir, parent, stem+".csv")
}
