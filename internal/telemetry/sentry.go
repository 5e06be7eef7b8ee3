// Package telemetry provides opt-in, privacy-first error reporting.
//
// Reporting is disabled by default and activates only when the user sets
// sentry.enabled in the configuration. Events never carry hostnames, file
// paths, or broker addresses: messages pass through the same scrubbing the
// errors package applies before anything leaves the process.
package telemetry

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// sentryDSN identifies the fieldscan project. A DSN is a write-only routing
// key, not a secret; nothing is sent unless sentry.enabled is set.
const sentryDSN = "https://b2f1c7d04a1e4c5c9e2b8f3a6d7e9c01@o4508112233445566.ingest.us.sentry.io/4508112299887766"

// installIDFile stores the anonymous install identifier next to the config.
const installIDFile = ".install_id"

// initialized tracks whether the SDK accepted our options.
var initialized bool

// InitSentry wires the Sentry SDK when the user has opted in. With
// sentry.enabled false (the default) it installs nothing and returns nil,
// leaving the errors package's telemetry hook disconnected.
func InitSentry(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		return nil
	}

	installID, err := loadOrCreateInstallID()
	if err != nil {
		// An unreadable ID file is not worth failing startup over; report
		// anonymously without a stable identifier.
		log.Printf("telemetry: could not establish install ID: %v", err)
		installID = ""
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:        sentryDSN,
		SampleRate: 1.0,
		Debug:      settings.Sentry.Debug,

		// Privacy: no stack traces, no hostname, no network capture.
		AttachStacktrace: false,
		ServerName:       "",
		Environment:      "production",

		Release: fmt.Sprintf("fieldscan@%s", settings.Version),

		BeforeSend: scrubEvent,
	}); err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	configureScope(installID)
	initialized = true

	// From here on Build() forwards categorized errors automatically.
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	return nil
}

// configureScope attaches anonymous platform tags to every event.
func configureScope(installID string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		if installID != "" {
			scope.SetTag("install_id", installID)
		}
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("num_cpu", fmt.Sprintf("%d", runtime.NumCPU()))
	})
}

// scrubEvent is the BeforeSend hook. It strips identifying material from an
// event before transmission: user identity, server name, and any filesystem
// paths or host:port pairs embedded in messages.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil {
		return nil
	}

	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = errors.ScrubMessage(event.Message)

	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}

	for i := range event.Breadcrumbs {
		if event.Breadcrumbs[i] != nil {
			event.Breadcrumbs[i].Message = errors.ScrubMessage(event.Breadcrumbs[i].Message)
		}
	}

	// Context blocks can carry device details the SDK collects by default.
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "culture")
	}

	return event
}

// CaptureError reports an error outside the enhanced-error flow, for call
// sites that have a plain error and a component name. No-op until InitSentry
// has run successfully.
func CaptureError(err error, component string) {
	if !initialized || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureMessage(errors.ScrubMessage(err.Error()))
	})
}

// Flush waits for buffered events to reach the server, bounded by timeout.
// Call before process exit so shutdown does not drop reports.
func Flush(timeout time.Duration) bool {
	if !initialized {
		return true
	}
	return sentry.Flush(timeout)
}

// loadOrCreateInstallID returns the stable anonymous identifier for this
// installation, generating and persisting a fresh UUID on first run.
func loadOrCreateInstallID() (string, error) {
	paths, err := conf.GetDefaultConfigPaths()
	if err != nil || len(paths) == 0 {
		return "", fmt.Errorf("no config directory available: %w", err)
	}
	return installIDAt(paths[0])
}

// installIDAt reads or creates the install ID file inside dir. A file that
// does not parse as a UUID is treated as corrupt and regenerated.
func installIDAt(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	idPath := filepath.Join(dir, installIDFile)
	if data, err := os.ReadFile(idPath); err == nil {
		id := strings.TrimSpace(string(data))
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := os.WriteFile(idPath, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("persisting install ID: %w", err)
	}
	return id, nil
}
