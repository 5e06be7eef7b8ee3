package progress

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ConsoleSink renders a single in-place status line, redrawn at most every
// 100ms so a fast batch does not flood the terminal. Failures and the final
// summary bypass the throttle and get durable lines of their own.
type ConsoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	limiter *rate.Limiter
	start   time.Time
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{
		w:       w,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		start:   time.Now(),
	}
}

func (s *ConsoleSink) Report(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := truncateFilename(filepath.Base(e.Path))

	if e.Err != nil {
		fmt.Fprintf(s.w, "\r\033[K\033[31m❌ %s: %v\033[0m\n", name, e.Err)
	}

	if e.Completed >= e.Total {
		fmt.Fprintf(s.w, "\r\033[K\033[32m✅ Analyzed %d/%d files in %s\033[0m\n",
			e.Completed, e.Total, FormatDuration(time.Since(s.start)))
		return
	}

	if !s.limiter.Allow() {
		return
	}

	fmt.Fprintf(s.w, "\r\033[K\033[37m📄 %s\033[0m | \033[33m🔍 Analyzing file %d/%d\033[0m%s",
		name, e.Completed, e.Total, s.estimateRemaining(e.Completed, e.Total))
}

// estimateRemaining projects the time left from the average pace so far.
// Nothing is shown until at least one file has finished.
func (s *ConsoleSink) estimateRemaining(completed, total int) string {
	if completed <= 0 || total <= completed {
		return ""
	}
	elapsed := time.Since(s.start)
	perFile := elapsed / time.Duration(completed)
	remaining := perFile * time.Duration(total-completed)
	return fmt.Sprintf(" \033[36m⏳ %s remaining\033[0m", FormatDuration(remaining))
}
