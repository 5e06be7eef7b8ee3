// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"net/url"
	"regexp"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// hasActiveReporting is the fast-path switch checked by Build. It avoids
// component detection and reporting work when telemetry is disabled,
// which is the default.
var hasActiveReporting atomic.Bool

// Global telemetry reporter (nil when telemetry is disabled)
var globalTelemetryReporter atomic.Pointer[reporterHolder]

// reporterHolder wraps the interface so it can live in an atomic.Pointer.
type reporterHolder struct {
	reporter TelemetryReporter
}

// SetTelemetryReporter sets the global telemetry reporter
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		hasActiveReporting.Store(false)
		return
	}
	globalTelemetryReporter.Store(&reporterHolder{reporter: reporter})
	hasActiveReporting.Store(reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	holder := globalTelemetryReporter.Load()
	if holder == nil {
		return nil
	}
	return holder.reporter
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	reporter := GetTelemetryReporter()
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{
		enabled: enabled,
	}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	// Create enhanced error message with category
	enhancedMessage := fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error())

	// Scrub the message for privacy
	scrubbedMessage := ScrubMessage(enhancedMessage)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		// Context values are scrubbed; keys are fixed identifiers
		for key, value := range ee.Context {
			if s, ok := value.(string); ok {
				scope.SetExtra(key, ScrubMessage(s))
				continue
			}
			scope.SetExtra(key, value)
		}

		sentry.CaptureMessage(scrubbedMessage)
	})

	ee.MarkReported()
}

var (
	// Unix and Windows absolute paths. File names routinely carry recording
	// locations and station identifiers, so whole paths are dropped.
	pathPattern = regexp.MustCompile(`(?:/[\w.\-]+)+/?|[A-Za-z]:\\[\w.\\\- ]+`)
	// host:port pairs from broker and database addresses
	hostPortPattern = regexp.MustCompile(`\b[\w.\-]+\.[a-zA-Z]{2,}:\d{2,5}\b`)
)

// ScrubMessage removes filesystem paths and network addresses from a message
// before it leaves the process.
func ScrubMessage(message string) string {
	scrubbed := pathPattern.ReplaceAllString(message, "<path>")
	scrubbed = hostPortPattern.ReplaceAllString(scrubbed, "<host>")
	return scrubbed
}

// RedactCredentials strips the userinfo part from a URL so broker and server
// addresses can be logged without leaking passwords. Unparseable input is
// returned unchanged.
func RedactCredentials(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	u.User = nil
	return u.String()
}
