package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/detector"
	"github.com/tsalo/fieldscan/internal/watcher"
)

// WatchAnalysis watches the input tree and analyzes new recordings as they
// settle, until ctx is cancelled. Each settled file runs through the same
// per-file flow as a batch file. It is the entry point behind the watch
// command.
func WatchAnalysis(ctx context.Context, settings *conf.Settings) error {
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

	runner := NewRunner(settings, det, store, metrics, publisher, nil)

	// The watcher dispatches settled files one at a time from its own run
	// loop, so plain counters are safe here.
	var processed, failed int
	w, err := watcher.New(settings, func(ctx context.Context, path string) (string, error) {
		location, err := runner.ProcessFile(ctx, path)
		if err != nil {
			failed++
			return "", err
		}
		processed++
		return location, nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Watching %s for new recordings (Ctrl+C to stop)\n", settings.Input.Path)
	started := time.Now()

	runErr := w.Run(ctx)
	runner.FinishSession()

	duration := time.Since(started).Round(timePrecision)
	fmt.Printf("Watch stopped after %s: %d files analyzed, %d failed\n", duration, processed, failed)

	title := fmt.Sprintf("fieldscan: watch session ended on %s", settings.Main.Name)
	message := fmt.Sprintf("%d files analyzed, %d failed over %s", processed, failed, duration)
	if err := notifier.Send(context.WithoutCancel(ctx), title, message); err != nil {
		GetLogger().Warn("watch summary notification failed", "error", err)
	}

	return runErr
}
