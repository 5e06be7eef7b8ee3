package export

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// LocalTarget copies the master output into a local directory, typically a
// mounted share or a synced folder.
type LocalTarget struct {
	path string
}

// NewLocalTarget creates a local copy target for the configured directory.
func NewLocalTarget(cfg conf.ExportTargetLocal) *LocalTarget {
	return &LocalTarget{path: cfg.Path}
}

// Name identifies the target in logs and error messages.
func (t *LocalTarget) Name() string { return "local" }

// Validate ensures the destination directory exists and is writable.
func (t *LocalTarget) Validate() error {
	if t.path == "" {
		return errors.Newf("local export path is empty").
			Component("export").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := os.MkdirAll(t.path, 0o755); err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("operation", "create_export_dir").
			Build()
	}

	// A stat-based writability check misses read-only mounts; creating and
	// removing a marker file does not.
	probe := filepath.Join(t.path, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("operation", "write_probe").
			Build()
	}
	_ = f.Close()
	_ = os.Remove(probe)

	return nil
}

// Upload copies localPath into the target directory as remoteName.
func (t *LocalTarget) Upload(ctx context.Context, localPath, remoteName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("operation", "open_master").
			Build()
	}
	defer src.Close()

	if err := os.MkdirAll(t.path, 0o755); err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("operation", "create_export_dir").
			Build()
	}

	dstPath := filepath.Join(t.path, remoteName)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("operation", "create_copy").
			Build()
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("operation", "copy_master").
			Build()
	}

	return dst.Close()
}
