package observation

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/tsalo/fieldscan/internal/errors"
)

// WriteCSV writes records to location, header first, creating parent
// directories as needed. An existing file is truncated, not appended to, so
// re-running a batch replaces per-file results. The header goes out even for
// zero records: a header-only file means "processed, nothing found", which
// the merge step must be able to tell apart from "never processed".
func WriteCSV(records []Record, location string) error {
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return writeFailed(err, location)
	}

	file, err := os.Create(location)
	if err != nil {
		return writeFailed(err, location)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return writeFailed(err, location)
	}
	for i := range records {
		if err := w.Write(records[i].row()); err != nil {
			return writeFailed(err, location)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return writeFailed(err, location)
	}
	return nil
}

func writeFailed(err error, location string) error {
	return errors.New(err).
		Component("observation").
		Category(errors.CategoryFileIO).
		Context("location", location).
		Build()
}
