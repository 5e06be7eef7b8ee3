package conf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestEmbeddedDefaultConfig verifies the embedded template is valid YAML and
// decodes into the Settings struct without losing the core defaults. It goes
// through viper so duration strings like "10m" decode the same way Load does.
func TestEmbeddedDefaultConfig(t *testing.T) {
	data := getDefaultConfig()
	require.NotEmpty(t, data, "embedded config template should not be empty")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(data)), "embedded template must be valid YAML")

	var settings Settings
	require.NoError(t, v.Unmarshal(&settings), "embedded template must decode into Settings")

	assert.Equal(t, "fieldscan", settings.Main.Name)
	assert.InDelta(t, 0.1, settings.Analyzer.MinConfidence, 0.0001)
	assert.Equal(t, 10*time.Minute, settings.Analyzer.Timeout)
	assert.Equal(t, 1, settings.Batch.Workers)
	assert.Equal(t, "results", settings.Output.Path)
	assert.Equal(t, "master_results.csv", settings.Output.MasterName)
	assert.True(t, settings.Output.AutoMerge)
	assert.False(t, settings.Output.SQLite.Enabled)
	assert.False(t, settings.MQTT.Enabled)
	assert.False(t, settings.Sentry.Enabled, "telemetry must be opt-in")
}

// TestDefaultConfigValidates ensures a Settings built purely from viper
// defaults passes validation, so a fresh install starts cleanly.
func TestDefaultConfigValidates(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setDefaultConfig()

	settings := &Settings{}
	require.NoError(t, viper.Unmarshal(settings))
	assert.NoError(t, ValidateSettings(settings))

	assert.Equal(t, 10*time.Minute, settings.Analyzer.Timeout)
	assert.Equal(t, 10*time.Second, settings.Watch.SettleTime)
	assert.Equal(t, "localhost:9180", settings.Metrics.Listen)
}

func TestSaveYAMLConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	settings := &Settings{}
	settings.Main.Name = "station-7"
	settings.Analyzer.Command = "/opt/analyzer/bin/analyze"
	settings.Analyzer.MinConfidence = 0.25
	settings.Batch.Workers = 4
	settings.Output.Path = "results"
	settings.Output.MasterName = "master_results.csv"
	settings.Version = "1.2.3" // runtime-only, must not be persisted

	require.NoError(t, SaveYAMLConfig(configPath, settings))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var loaded Settings
	require.NoError(t, yaml.Unmarshal(data, &loaded))

	assert.Equal(t, "station-7", loaded.Main.Name)
	assert.Equal(t, "/opt/analyzer/bin/analyze", loaded.Analyzer.Command)
	assert.InDelta(t, 0.25, loaded.Analyzer.MinConfidence, 0.0001)
	assert.Equal(t, 4, loaded.Batch.Workers)
	assert.Empty(t, loaded.Version, "runtime values must not round-trip through the config file")
}

func TestSaveYAMLConfigOverwritesExisting(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("stale: true\n"), 0o644))

	settings := &Settings{}
	settings.Main.Name = "replacement"
	require.NoError(t, SaveYAMLConfig(configPath, settings))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Contains(t, string(data), "replacement")
}
