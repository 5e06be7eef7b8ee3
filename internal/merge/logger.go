// Package merge compiles per-file results into the master CSV.
package merge

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/tsalo/fieldscan/internal/logging"
)

// Package-level logger for merge operations
var (
	logger         *slog.Logger
	loggerInitOnce sync.Once
	levelVar       = new(slog.LevelVar) // Dynamic level control
	closeLogger    func() error
)

// GetLogger returns the package logger, initializing the service log file on
// first use. Thread-safe through sync.Once.
func GetLogger() *slog.Logger {
	loggerInitOnce.Do(func() {
		var err error
		logFilePath := filepath.Join("logs", "merge.log")
		levelVar.Set(slog.LevelInfo)

		logger, closeLogger, err = logging.NewFileLogger(logFilePath, "merge", levelVar)
		if err != nil {
			// Fallback: log the error and keep a disabled handler so calls
			// never hit a nil logger.
			log.Printf("Failed to initialize merge file logger at %s: %v. Using console logging.", logFilePath, err)
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: levelVar})
			logger = slog.New(fbHandler).With("service", "merge")
			closeLogger = func() error { return nil }
		}
	})
	return logger
}

// CloseLogger closes the log file and releases resources.
func CloseLogger() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}
