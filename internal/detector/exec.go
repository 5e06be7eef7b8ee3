package detector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// stderrExcerptLimit caps how much analyzer stderr is carried into error
// messages so a chatty model does not flood the logs.
const stderrExcerptLimit = 512

// ExecDetector shells out to the configured analyzer command once per file.
//
// The analyzer is invoked as
//
//	<command> [args...] --input <file> --min-confidence <x> --format json
//
// and must print a JSON document of the form
//
//	{"detections": [{"start_time": 0.0, "end_time": 3.0,
//	                 "common_name": "...", "confidence": 0.93}, ...]}
//
// on stdout. A non-zero exit status marks the file as failed.
type ExecDetector struct {
	command string
	args    []string
	timeout time.Duration
}

// NewExecDetector resolves the analyzer binary and binds a detector to it.
// The lookup happens once here so a missing binary surfaces at startup
// instead of on the first file of a long batch.
func NewExecDetector(settings *conf.AnalyzerConfig) (*ExecDetector, error) {
	if settings.Command == "" {
		return nil, errors.Newf("analyzer command is not configured").
			Component("detector").
			Category(errors.CategoryConfiguration).
			Build()
	}

	resolved, err := exec.LookPath(settings.Command)
	if err != nil {
		return nil, errors.Newf("analyzer command %q not found: %w", settings.Command, err).
			Component("detector").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &ExecDetector{
		command: resolved,
		args:    append([]string(nil), settings.Args...),
		timeout: settings.Timeout,
	}, nil
}

// Describe returns the resolved analyzer command path.
func (d *ExecDetector) Describe() string {
	return d.command
}

// Analyze runs the analyzer on path and parses its detections. The per-file
// timeout, when configured, bounds the child process through the context;
// exceeding it fails this file only.
func (d *ExecDetector) Analyze(ctx context.Context, path string, minConfidence float64) ([]Detection, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(d.args)+6)
	args = append(args, d.args...)
	args = append(args,
		"--input", path,
		"--min-confidence", strconv.FormatFloat(minConfidence, 'f', -1, 64),
		"--format", "json",
	)

	cmd := exec.CommandContext(ctx, d.command, args...) //nolint:gosec // G204: command comes from operator configuration
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		if ctx.Err() != nil {
			category := errors.CategoryCancellation
			if ctx.Err() == context.DeadlineExceeded {
				category = errors.CategoryTimeout
			}
			return nil, errors.Newf("analyzer did not finish %s: %w", filepath.Base(path), ctx.Err()).
				Component("detector").
				Category(category).
				Context("file", filepath.Base(path)).
				Timing("analyze", elapsed).
				Build()
		}

		builder := errors.Newf("analyzer failed on %s: %w%s",
			filepath.Base(path), runErr, stderrExcerpt(&stderr)).
			Component("detector").
			Category(errors.CategoryDetection).
			Context("file", filepath.Base(path)).
			Timing("analyze", elapsed)
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			builder = builder.Context("exit_code", exitErr.ExitCode())
		}
		return nil, builder.Build()
	}

	detections, err := parseDetections(stdout.Bytes())
	if err != nil {
		return nil, errors.Newf("analyzer output for %s: %w", filepath.Base(path), err).
			Component("detector").
			Category(errors.CategoryDetection).
			Context("file", filepath.Base(path)).
			Timing("analyze", elapsed).
			Build()
	}
	return detections, nil
}

// parseDetections decodes the analyzer's stdout document. Timing and label
// fields are required; a malformed entry fails the whole file rather than
// silently dropping results. A missing confidence defaults to zero so the
// row still lands in the CSV as 0.000.
func parseDetections(raw []byte) ([]Detection, error) {
	root, err := jason.NewObjectFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}

	entries, err := root.GetObjectArray("detections")
	if err != nil {
		return nil, fmt.Errorf("missing detections array: %w", err)
	}

	detections := make([]Detection, 0, len(entries))
	for i, entry := range entries {
		var det Detection
		if det.Start, err = entry.GetFloat64("start_time"); err != nil {
			return nil, fmt.Errorf("detection %d: start_time: %w", i, err)
		}
		if det.End, err = entry.GetFloat64("end_time"); err != nil {
			return nil, fmt.Errorf("detection %d: end_time: %w", i, err)
		}
		if det.Label, err = entry.GetString("common_name"); err != nil {
			return nil, fmt.Errorf("detection %d: common_name: %w", i, err)
		}
		if confidence, err := entry.GetFloat64("confidence"); err == nil {
			det.Confidence = confidence
		}
		detections = append(detections, det)
	}
	return detections, nil
}

func stderrExcerpt(buf *bytes.Buffer) string {
	msg := strings.TrimSpace(buf.String())
	if msg == "" {
		return ""
	}
	if len(msg) > stderrExcerptLimit {
		msg = msg[:stderrExcerptLimit] + "..."
	}
	return " (stderr: " + msg + ")"
}
