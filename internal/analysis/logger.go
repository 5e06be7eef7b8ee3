// Package analysis orchestrates batch runs: discovery, dispatch, per-file
// detection, and the follow-up merge.
package analysis

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/tsalo/fieldscan/internal/logging"
)

// Package-level logger for analysis operations
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
		logFilePath := filepath.Join("logs", "analysis.log")
		levelVar.Set(slog.LevelInfo)

		logger, closeLogger, err = logging.NewFileLogger(logFilePath, "analysis", levelVar)
		if err != nil {
			log.Printf("Failed to initialize analysis file logger at %s: %v. Using console logging.", logFilePath, err)
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: levelVar})
			logger = slog.New(fbHandler).With("service", "analysis")
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
