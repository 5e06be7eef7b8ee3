package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutputCapturesBothLoggers(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)

	Structured().Info("structured message", "key", "value")
	HumanReadable().Info("human message")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry), "structured output must be JSON")
	assert.Equal(t, "structured message", entry["msg"])
	assert.Equal(t, "value", entry["key"])

	assert.Contains(t, human.String(), "human message")
}

func TestCustomLevelNames(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)

	Trace("tracing")
	Structured().Log(t.Context(), LevelTrace, "deep detail")

	assert.Contains(t, human.String(), "TRACE", "trace level must render by name")
	assert.Contains(t, structured.String(), `"TRACE"`)
}

func TestForService(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)

	logger := ForService("analysis")
	require.NotNil(t, logger)
	logger.Info("service scoped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "analysis", entry["service"])
}

func TestNewFileLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "merge.log")

	logger, closeFunc, err := NewFileLogger(logPath, "merge", slog.LevelInfo)
	require.NoError(t, err)
	require.NotNil(t, logger)
	t.Cleanup(func() { _ = closeFunc() })

	logger.Info("file logger message", "rows", 42)
	logger.Debug("below level, must not be written")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "debug record must be filtered out")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "file logger message", entry["msg"])
	assert.Equal(t, "merge", entry["service"])
	assert.InDelta(t, 42, entry["rows"].(float64), 0.1)
}

func TestNewFileLoggerHonorsLevelVar(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "watcher.log")

	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)

	logger, closeFunc, err := NewFileLogger(logPath, "watcher", levelVar)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFunc() })

	logger.Info("filtered")
	levelVar.Set(slog.LevelDebug)
	logger.Debug("now visible")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "filtered")
	assert.Contains(t, string(data), "now visible")
}
