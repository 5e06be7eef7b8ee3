// Package observation renders detections into the per-file CSV results that
// the merge compiler later folds into the master file.
package observation

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/tsalo/fieldscan/internal/detector"
)

// csvHeader is the fixed five-column schema shared by per-file results and
// the merged master. Comparison elsewhere is case-insensitive; writing
// always uses this exact form.
var csvHeader = []string{"file", "start_s", "end_s", "label", "confidence"}

// Header returns a copy of the fixed CSV header row.
func Header() []string {
	return append([]string(nil), csvHeader...)
}

// Record is one result row: a single detection attributed to the recording
// it came from.
type Record struct {
	File       string  // display (base) name of the source recording
	Start      float64 // detection start, seconds
	End        float64 // detection end, seconds
	Label      string
	Confidence float64
}

// BuildRecords maps detections onto result rows. Only the base name of the
// source file is recorded, so results stay stable when the recordings move
// between machines.
func BuildRecords(detections []detector.Detection, sourcePath string) []Record {
	name := filepath.Base(sourcePath)
	records := make([]Record, 0, len(detections))
	for _, det := range detections {
		records = append(records, Record{
			File:       name,
			Start:      det.Start,
			End:        det.End,
			Label:      det.Label,
			Confidence: det.Confidence,
		})
	}
	return records
}

// row renders the record for CSV output. Confidence is fixed to three
// decimals; an absent confidence renders as 0.000.
func (r Record) row() []string {
	return []string{
		r.File,
		formatSeconds(r.Start),
		formatSeconds(r.End),
		r.Label,
		fmt.Sprintf("%.3f", r.Confidence),
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
