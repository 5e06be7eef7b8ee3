package analysis

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/export"
	"github.com/tsalo/fieldscan/internal/progress"
)

// timePrecision rounds durations in operator-facing output.
const timePrecision = 100 * time.Millisecond

// BatchAnalysis runs one full batch over the input directory: discovery,
// dispatch, optional merge, and the configured side channels (persistence,
// publishing, export, notification). It is the entry point behind the scan
// command.
func BatchAnalysis(ctx context.Context, settings *conf.Settings) error {
	det, err := detector.NewExecDetector(&settings.Analyzer)
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer closeDataStore(store)

	metrics, err := startMetrics(ctx, settings)
	if err != nil {
		return err
	}

	publisher, err := connectPublisher(ctx, settings)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Disconnect()
	}

	notifier, err := newNotifier(settings)
	if err != nil {
		return err
	}

	exporter := export.NewManager(settings)
	if err := exporter.Validate(); err != nil {
		// Targets are retried at export time; a NAS that is down now may be
		// back before the batch finishes.
		GetLogger().Warn("export target validation failed", "error", err)
	}

	fmt.Printf("Scanning %s with analyzer %s\n", settings.Input.Path, det.Describe())

	runner := NewRunner(settings, det, store, metrics, publisher, progress.NewConsoleSink(os.Stdout))
	result, runErr := runner.Run(ctx)
	if result == nil {
		return runErr
	}

	var exportErr error
	if result.MasterPath != "" {
		if exportErr = exporter.ExportMaster(ctx, result.MasterPath); exportErr != nil {
			GetLogger().Error("master export failed", "error", exportErr)
		}
	}

	printBatchSummary(result, exportErr)

	title, message := summarize(settings.Main.Name, result, runErr, exportErr)
	if err := notifier.Send(ctx, title, message); err != nil {
		GetLogger().Warn("completion notification failed", "error", err)
	}

	return runErr
}

func printBatchSummary(result *BatchResult, exportErr error) {
	fmt.Printf("Analyzed %d files in %s: %d succeeded, %d failed, %d detections\n",
		result.FilesTotal, result.Duration().Round(timePrecision), result.Succeeded(),
		result.FilesFailed, result.Detections)
	if result.MasterPath != "" {
		fmt.Printf("Master results: %s\n", result.MasterPath)
	}
	if exportErr != nil {
		fmt.Printf("Export failed: %v\n", exportErr)
	}
}

// summarize builds the notification title and body for a finished batch.
func summarize(node string, result *BatchResult, runErr, exportErr error) (title, message string) {
	title = fmt.Sprintf("fieldscan: batch complete on %s", node)
	if result.FilesFailed > 0 || runErr != nil {
		title = fmt.Sprintf("fieldscan: batch finished with failures on %s", node)
	}

	message = fmt.Sprintf("%d/%d files analyzed, %d detections in %s",
		result.Succeeded(), result.FilesTotal, result.Detections,
		result.Duration().Round(timePrecision))
	if result.FilesFailed > 0 {
		message += fmt.Sprintf("; %d files failed", result.FilesFailed)
	}
	if exportErr != nil {
		message += "; master export failed"
	}
	return title, message
}
