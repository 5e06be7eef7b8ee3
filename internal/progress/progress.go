// Package progress reports batch completion to the terminal.
package progress

import (
	"fmt"
	"time"
)

// Event describes one completed file of a batch.
type Event struct {
	Completed int    // files finished so far, including this one
	Total     int    // files in the batch
	Path      string // file that just finished
	Err       error  // non-nil when the file failed
}

// Sink consumes progress events. Report is called once per completed file,
// from whichever worker finished it, so implementations must be safe for
// concurrent use.
type Sink interface {
	Report(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Report(Event) {}

// truncateFilename keeps status lines from wrapping on narrow terminals.
func truncateFilename(name string) string {
	if len(name) > 30 {
		return name[:27] + "..."
	}
	return name
}

// FormatDuration formats a duration with the most readable unit: "450ms",
// "45s", "2m 30s", "1h 23m 45s". Values are rounded to the displayed unit.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return fmt.Sprintf("-%s", FormatDuration(-d))
	}

	if d < time.Second {
		return fmt.Sprintf("%dms", d.Round(time.Millisecond).Milliseconds())
	}

	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Round(time.Second).Seconds()))
	}

	if d < time.Hour {
		d = d.Round(time.Second)
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	d = d.Round(time.Second)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
