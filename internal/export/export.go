// Package export delivers the master output to configured remote targets.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tsalo/fieldscan/internal/conf"
)

// Target is a destination capable of receiving the master output file.
type Target interface {
	// Name identifies the target in logs and error messages.
	Name() string

	// Validate checks the target configuration, reaching out to the remote
	// side where that is the only way to know. Called once at startup.
	Validate() error

	// Upload copies the local file to the target under remoteName.
	Upload(ctx context.Context, localPath, remoteName string) error
}

// TargetError records a single target's failure during an export fan-out.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// ExportError aggregates per-target failures. An export is best effort:
// one unreachable server must not hide a successful copy elsewhere, so all
// targets run before any error is returned.
type ExportError struct {
	Failures []*TargetError
}

func (e *ExportError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Target)
	}
	return fmt.Sprintf("export failed for %d target(s): %s", len(e.Failures), strings.Join(names, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ExportError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Manager fans the master output out to every enabled target.
type Manager struct {
	targets []Target
}

// NewManager assembles the enabled targets from the user configuration.
// Returns nil when export is disabled or no target is enabled.
func NewManager(settings *conf.Settings) *Manager {
	if !settings.Export.Enabled {
		return nil
	}

	var targets []Target
	if settings.Export.Local.Enabled {
		targets = append(targets, NewLocalTarget(settings.Export.Local))
	}
	if settings.Export.FTP.Enabled {
		targets = append(targets, NewFTPTarget(settings.Export.FTP))
	}
	if settings.Export.SFTP.Enabled {
		targets = append(targets, NewSFTPTarget(settings.Export.SFTP))
	}
	if len(targets) == 0 {
		return nil
	}

	return &Manager{targets: targets}
}

// Targets returns the assembled targets, primarily for startup validation.
func (m *Manager) Targets() []Target {
	if m == nil {
		return nil
	}
	return m.targets
}

// Validate runs every target's validation, stopping at the first failure so
// misconfiguration surfaces before any analysis work starts.
func (m *Manager) Validate() error {
	if m == nil {
		return nil
	}
	for _, t := range m.targets {
		if err := t.Validate(); err != nil {
			return &TargetError{Target: t.Name(), Err: err}
		}
	}
	return nil
}

// ExportMaster uploads the master file to every target. Each target gets a
// chance regardless of earlier failures; the aggregate error is nil only
// when all succeed.
func (m *Manager) ExportMaster(ctx context.Context, masterPath string) error {
	if m == nil {
		return nil
	}

	remoteName := filepath.Base(masterPath)
	var failures []*TargetError

	for _, t := range m.targets {
		if err := ctx.Err(); err != nil {
			failures = append(failures, &TargetError{Target: t.Name(), Err: err})
			continue
		}

		if err := t.Upload(ctx, masterPath, remoteName); err != nil {
			GetLogger().Error("export target failed",
				"target", t.Name(),
				"file", remoteName,
				"error", err)
			failures = append(failures, &TargetError{Target: t.Name(), Err: err})
			continue
		}

		GetLogger().Info("master output exported", "target", t.Name(), "file", remoteName)
	}

	if len(failures) > 0 {
		return &ExportError{Failures: failures}
	}
	return nil
}
