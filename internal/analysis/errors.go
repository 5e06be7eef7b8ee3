package analysis

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileError records one file's analysis failure.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchError aggregates every per-file failure of a batch. It is raised only
// after all files have been attempted; a failing file never aborts its
// siblings.
type BatchError struct {
	Failures []*FileError
}

func (e *BatchError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, filepath.Base(f.Path))
	}
	const maxNamed = 5
	if len(names) > maxNamed {
		names = append(names[:maxNamed], fmt.Sprintf("and %d more", len(names)-maxNamed))
	}
	return fmt.Sprintf("analysis failed for %d file(s): %s",
		len(e.Failures), strings.Join(names, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
