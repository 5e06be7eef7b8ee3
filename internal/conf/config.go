// config.go: This file contains the configuration for the fieldscan application. It defines the settings struct and functions to load and save the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// AnalyzerConfig holds settings for the external detection analyzer.
type AnalyzerConfig struct {
	Command       string        // path to the analyzer executable
	Args          []string      // extra arguments passed before the generated ones
	MinConfidence float64       // minimum confidence for reported detections
	Timeout       time.Duration // per-file analysis timeout, zero disables
}

// InputConfig holds settings for locating audio files to analyze.
type InputConfig struct {
	Path          string // base directory to scan for audio files
	FolderPattern string // optional glob matched against subdirectory names
	Validate      bool   // true to probe audio headers before dispatching
}

// BatchConfig holds settings for batch dispatch.
type BatchConfig struct {
	Workers int // number of concurrent analysis workers, 1 for sequential
}

// WatchConfig holds settings for watch mode.
type WatchConfig struct {
	SettleTime time.Duration // how long a file's size must stay unchanged before analysis
	Poll       time.Duration // interval between settle checks
	Cooldown   time.Duration // suppress re-analysis of the same path within this window
}

// MQTTConfig contains settings for MQTT result publishing.
type MQTTConfig struct {
	Enabled  bool   // true to enable MQTT publishing
	Broker   string // MQTT broker (tcp://host:port)
	Topic    string // MQTT topic for per-file result summaries
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to publish retained messages
}

// MetricsConfig contains settings for the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   // true to serve Prometheus metrics during scan and watch runs
	Listen  string // IP address and port to listen on
}

// NotifyConfig contains settings for run completion notifications.
type NotifyConfig struct {
	Enabled bool     // true to send notifications when a run finishes
	URLs    []string // shoutrrr service URLs
}

// ExportTargetFTP holds settings for the FTP export target.
type ExportTargetFTP struct {
	Enabled  bool          // true to enable this target
	Host     string        // FTP server host
	Port     int           // FTP server port
	Username string        // FTP username
	Password string        // FTP password
	Path     string        // remote base directory
	Timeout  time.Duration // connection timeout
}

// ExportTargetSFTP holds settings for the SFTP export target.
type ExportTargetSFTP struct {
	Enabled  bool          // true to enable this target
	Host     string        // SFTP server host
	Port     int           // SFTP server port
	Username string        // SFTP username
	Password string        // SFTP password, empty when using key auth
	KeyFile  string        // path to private key file, empty when using password auth
	Path     string        // remote base directory
	Timeout  time.Duration // connection timeout
}

// ExportTargetLocal holds settings for the local copy export target.
type ExportTargetLocal struct {
	Enabled bool   // true to enable this target
	Path    string // directory to copy the master output into
}

// ExportConfig contains settings for delivering the master output after merge.
type ExportConfig struct {
	Enabled bool              // true to enable export after a successful merge
	Local   ExportTargetLocal // local copy target
	FTP     ExportTargetFTP   // FTP target
	SFTP    ExportTargetSFTP  // SFTP target
}

// SentryConfig contains settings for opt-in error telemetry.
type SentryConfig struct {
	Enabled bool // true to enable Sentry error reporting, disabled by default
	Debug   bool // true to enable Sentry SDK debug logging
}

// Settings contains all configuration options for the fieldscan application.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name string    // name of this fieldscan node, used to identify the source of results
		Log  LogConfig // logging configuration
	}

	Analyzer AnalyzerConfig // external analyzer configuration

	Input InputConfig // input scan configuration

	Batch BatchConfig // batch dispatch configuration

	Watch WatchConfig // watch mode configuration

	Output struct {
		Path       string // directory for per-file result CSVs
		MasterName string // file name of the merged master CSV
		AutoMerge  bool   // true to compile the master CSV after each batch

		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}

		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}
	}

	MQTT MQTTConfig // MQTT result publishing

	Metrics MetricsConfig // Prometheus metrics endpoint

	Notify NotifyConfig // run completion notifications

	Export ExportConfig // master output export targets

	Sentry SentryConfig // opt-in error telemetry
}

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // Path to the log file
	Rotation    RotationType // Type of log rotation
	MaxSize     int64        // Max size in bytes for RotationSize
	RotationDay string       // Day of the week for RotationWeekly (as a string: "Sunday", "Monday", etc.)
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	// Create a new settings struct
	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	// Save settings instance
	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Get OS specific config paths
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	// Assign config paths to Viper
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Bind environment variable overrides
	// function defined in env.go
	if err := bindEnvVars(); err != nil {
		return fmt.Errorf("error binding environment variables: %w", err)
	}

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	// Create directories for config file
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	// Write default config file
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings saves the current settings to the configuration file.
// It uses SaveYAMLConfig to handle the atomic write process.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	// Create a copy of the settings
	settingsCopy := *settingsInstance

	// Find the path of the current config file
	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	// Save the settings to the config file
	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	log.Printf("Settings saved successfully to %s", configPath)
	return nil
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	// Marshal the settings struct to YAML
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write the YAML data to a temporary file
	// This is done to ensure atomic write operation
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	// Ensure the temporary file is removed in case of any failure
	defer os.Remove(tempFileName)

	// Write the YAML data to the temporary file
	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	// Close the temporary file after writing
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	// Try to rename the temporary file to replace the original config file
	// This is typically an atomic operation on most filesystems
	if err := os.Rename(tempFileName, configPath); err != nil {
		// If rename fails (e.g., cross-device link), fall back to copy & delete
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
