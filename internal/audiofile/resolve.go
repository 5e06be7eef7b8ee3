package audiofile

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tsalo/fieldscan/internal/errors"
)

// Resolve expands base into the ordered, deduplicated list of audio files to
// analyze. When pattern is non-empty it is matched against the names of
// directories below base, and each matching directory becomes a search root;
// when nothing matches, or no pattern is given, base itself is the sole root.
//
// A base that does not exist yields an empty result and no error, so callers
// can treat "nothing to do" uniformly. Files are identified by their
// canonical absolute path: a file reachable under several roots, or through a
// symlink, appears exactly once, at the position it was first seen.
// Traversal is lexical per directory, which keeps the output deterministic.
func Resolve(base, pattern string) ([]string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("base", base).
			Build()
	}

	info, err := os.Stat(absBase)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("base", absBase).
			Build()
	}
	if !info.IsDir() {
		// Discovery walks directories only. A file passed as base resolves
		// to nothing, same as a base with no audio under it.
		return nil, nil
	}

	roots := []string{absBase}
	if pattern != "" {
		matched, err := matchDirectories(absBase, pattern)
		if err != nil {
			return nil, err
		}
		if len(matched) > 0 {
			roots = matched
		} else {
			slog.Debug("no directories match folder pattern, scanning base",
				"base", absBase, "pattern", pattern)
		}
	}

	seen := make(map[string]struct{})
	var files []string
	for _, root := range roots {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped, not fatal: one bad
				// directory must not sink the rest of the batch.
				slog.Warn("skipping unreadable path during discovery", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !HasSupportedExtension(path) {
				return nil
			}
			if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			canonical := canonicalPath(path)
			if _, dup := seen[canonical]; dup {
				return nil
			}
			seen[canonical] = struct{}{}
			files = append(files, canonical)
			return nil
		})
		if walkErr != nil {
			return nil, errors.New(walkErr).
				Category(errors.CategoryFileIO).
				Context("root", root).
				Build()
		}
	}
	return files, nil
}

// matchDirectories walks base and collects every directory whose name matches
// pattern, in lexical traversal order. Matching roots may nest; the caller's
// seen-set keeps files under overlapping roots unique.
func matchDirectories(base, pattern string) ([]string, error) {
	var matched []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path during discovery", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == base {
			return nil
		}
		ok, matchErr := filepath.Match(pattern, d.Name())
		if matchErr != nil {
			return errors.New(matchErr).
				Category(errors.CategoryValidation).
				Context("pattern", pattern).
				Build()
		}
		if ok {
			matched = append(matched, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

// canonicalPath resolves symlinks so duplicate detection sees one identity
// per file. Resolution failures fall back to the lexical path; the walk
// already proved the entry exists.
func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}
