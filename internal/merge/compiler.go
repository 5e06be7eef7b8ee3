package merge

import (
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsalo/fieldscan/internal/errors"
	"github.com/tsalo/fieldscan/internal/observation"
)

// Stats summarizes one Compile pass over the output tree.
type Stats struct {
	Sources int // per-file CSVs found
	Rows    int // data rows written to the master
	Skipped int // unreadable sources that were dropped
}

// Compile scans root recursively for per-file result CSVs and concatenates
// their data rows into root/masterName, which is fully rewritten on every
// call. Files named like the master are excluded so the compiler never
// consumes its own output.
//
// Header handling is deliberately lenient: a first row that case-insensitively
// equals the fixed result header is discarded as a header, any other first
// row is passed through as data. A per-file output that lost its header this
// way is salvaged rather than rejected. Unreadable files are logged and
// skipped; they never abort the merge.
func Compile(root, masterName string) (string, Stats, error) {
	log := GetLogger()

	var stats Stats

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", stats, errors.New(err).
			Component("merge").
			Category(errors.CategoryFileIO).
			Context("root", root).
			Build()
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return "", stats, errors.New(err).
			Component("merge").
			Category(errors.CategoryFileIO).
			Context("root", absRoot).
			Build()
	}

	sources, err := findSources(absRoot, masterName)
	if err != nil {
		return "", stats, err
	}
	stats.Sources = len(sources)

	masterPath := filepath.Join(absRoot, masterName)
	master, err := os.Create(masterPath)
	if err != nil {
		return "", stats, errors.New(err).
			Component("merge").
			Category(errors.CategoryMerge).
			Context("master", masterPath).
			Build()
	}
	defer master.Close()

	w := csv.NewWriter(master)
	if err := w.Write(observation.Header()); err != nil {
		return "", stats, errors.New(err).
			Component("merge").
			Category(errors.CategoryMerge).
			Context("master", masterPath).
			Build()
	}

	for _, source := range sources {
		n, err := appendRows(w, source)
		if err != nil {
			// One bad file must not lose the rest of the run's results.
			log.Warn("skipping unreadable result file", "source", source, "error", err)
			stats.Skipped++
			continue
		}
		stats.Rows += n
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", stats, errors.New(err).
			Component("merge").
			Category(errors.CategoryMerge).
			Context("master", masterPath).
			Build()
	}

	log.Info("master results compiled",
		"master", masterPath,
		"sources", stats.Sources,
		"rows", stats.Rows,
		"skipped", stats.Skipped)
	return masterPath, stats, nil
}

// findSources walks root and returns every .csv file except those sharing
// the master's name, in lexical traversal order.
func findSources(root, masterName string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			GetLogger().Warn("skipping unreadable path during merge scan", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		if d.Name() == masterName {
			return nil
		}
		sources = append(sources, path)
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("merge").
			Category(errors.CategoryFileIO).
			Context("root", root).
			Build()
	}
	return sources, nil
}

// appendRows copies the data rows of one source into the master, returning
// how many rows it contributed.
func appendRows(w *csv.Writer, source string) (int, error) {
	file, err := os.Open(source)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	// Variable field counts and stray quotes occur in salvaged files; the
	// reader accepts them and the writer re-encodes them cleanly.
	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first, err := r.Read()
	switch {
	case err == io.EOF:
		return 0, nil // empty file contributes nothing
	case err != nil:
		return 0, err
	}

	rows := 0
	if !isHeaderRow(first) {
		GetLogger().Debug("result file has no header, first row kept as data", "source", source)
		if err := w.Write(first); err != nil {
			return rows, err
		}
		rows++
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if len(row) == 0 {
			continue
		}
		if err := w.Write(row); err != nil {
			return rows, err
		}
		rows++
	}
}

// isHeaderRow reports whether row matches the fixed result header, ignoring
// case and surrounding whitespace.
func isHeaderRow(row []string) bool {
	header := observation.Header()
	if len(row) != len(header) {
		return false
	}
	for i := range header {
		if !strings.EqualFold(strings.TrimSpace(row[i]), header[i]) {
			return false
		}
	}
	return true
}
