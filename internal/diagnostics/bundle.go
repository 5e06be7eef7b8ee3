package diagnostics

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

const (
	// maxLogTailBytes caps how much of each log file ends up in the bundle.
	maxLogTailBytes = 64 * 1024

	bundlePrefix = "fieldscan-support-"
)

// sensitiveKeys marks config keys whose values are redacted in support
// bundles. Matching is case-insensitive on key substrings, so "keyfile"
// and "mqtt.password" are both caught.
var sensitiveKeys = []string{
	"password", "username", "token", "secret", "key",
	"apikey", "api_key", "broker", "urls",
}

// WriteBundle assembles a support archive in destDir and returns its path.
// The archive holds collected system information, the active configuration
// with secrets masked, and the tail of each service log.
func WriteBundle(settings *conf.Settings, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryFileIO).
			Context("operation", "create_bundle_dir").
			Build()
	}

	name := bundlePrefix + time.Now().Format("20060102-150405") + ".zip"
	bundlePath := filepath.Join(destDir, name)

	f, err := os.Create(bundlePath)
	if err != nil {
		return "", errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryFileIO).
			Context("operation", "create_bundle").
			Build()
	}
	defer f.Close()

	w := zip.NewWriter(f)

	if err := writeSystemInfo(w, settings); err != nil {
		w.Close()
		return "", err
	}
	if err := writeSanitizedConfig(w, settings); err != nil {
		w.Close()
		return "", err
	}
	if err := writeLogTails(w); err != nil {
		w.Close()
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryFileIO).
			Context("operation", "close_bundle").
			Build()
	}
	if err := f.Close(); err != nil {
		return "", errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryFileIO).
			Context("operation", "close_bundle").
			Build()
	}

	GetLogger().Info("support bundle written", "path", bundlePath)
	return bundlePath, nil
}

func writeSystemInfo(w *zip.Writer, settings *conf.Settings) error {
	info := CollectSystemInfo(settings.Output.Path)
	data, err := yaml.Marshal(info)
	if err != nil {
		return errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "marshal_system_info").
			Build()
	}
	return addEntry(w, "system.yaml", data)
}

func writeSanitizedConfig(w *zip.Writer, settings *conf.Settings) error {
	scrubbed, err := SanitizeConfig(settings)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(scrubbed)
	if err != nil {
		return errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal_sanitized_config").
			Build()
	}
	return addEntry(w, "config.yaml", data)
}

// writeLogTails adds the tail of each log under the logs directory. A
// missing logs directory is not an error; a fresh install has none.
func writeLogTails(w *zip.Writer) error {
	logFiles, err := filepath.Glob(filepath.Join("logs", "*.log"))
	if err != nil {
		return errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryFileIO).
			Context("operation", "glob_logs").
			Build()
	}

	for _, logFile := range logFiles {
		tail, err := tailFile(logFile, maxLogTailBytes)
		if err != nil {
			GetLogger().Warn("skipping unreadable log", "path", logFile, "error", err)
			continue
		}
		entry := filepath.ToSlash(filepath.Join("logs", filepath.Base(logFile)))
		if err := addEntry(w, entry, tail); err != nil {
			return err
		}
	}
	return nil
}

// SanitizeConfig renders the settings as generic YAML with every sensitive
// value replaced by a redaction marker. The round trip through YAML keeps
// the scrub independent of the Settings struct shape.
func SanitizeConfig(settings *conf.Settings) (map[string]any, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return nil, errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal_config").
			Build()
	}

	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.New(err).
			Component("diagnostics").
			Category(errors.CategoryConfiguration).
			Context("operation", "parse_config").
			Build()
	}

	scrubbed := make(map[string]any, len(config))
	for k, v := range config {
		scrubbed[k] = scrubValue(k, v)
	}
	return scrubbed, nil
}

// scrubValue recursively replaces values under sensitive keys. List items
// inherit the key of the list that holds them.
func scrubValue(key string, value any) any {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			if isZeroValue(value) {
				return value
			}
			return "[REDACTED]"
		}
	}

	switch v := value.(type) {
	case map[string]any:
		scrubbed := make(map[string]any, len(v))
		for k, val := range v {
			scrubbed[k] = scrubValue(k, val)
		}
		return scrubbed
	case []any:
		scrubbed := make([]any, len(v))
		for i, item := range v {
			scrubbed[i] = scrubValue(key, item)
		}
		return scrubbed
	default:
		return value
	}
}

// isZeroValue reports whether a decoded YAML value carries no secret worth
// masking. Redacting empty strings would make it impossible to tell unset
// credentials from configured ones.
func isZeroValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func addEntry(w *zip.Writer, name string, data []byte) error {
	entry, err := w.Create(name)
	if err != nil {
		return errors.Newf("creating bundle entry %s: %w", name, err).
			Component("diagnostics").
			Category(errors.CategoryFileIO).
			Build()
	}
	if _, err := entry.Write(data); err != nil {
		return errors.Newf("writing bundle entry %s: %w", name, err).
			Component("diagnostics").
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

// tailFile returns up to maxBytes from the end of the file. When truncated,
// the output starts at the next line boundary so the tail stays parseable.
func tailFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := stat.Size()
	if size <= maxBytes {
		return io.ReadAll(f)
	}

	if _, err := f.Seek(size-maxBytes, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 && idx+1 < len(data) {
		data = data[idx+1:]
	}
	header := fmt.Sprintf("[truncated to last %d bytes]\n", maxBytes)
	return append([]byte(header), data...), nil
}
