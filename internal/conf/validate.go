// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	// Validate analyzer settings
	if err := validateAnalyzerSettings(&settings.Analyzer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate batch settings
	if err := validateBatchSettings(&settings.Batch); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate watch settings
	if err := validateWatchSettings(&settings.Watch); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate output settings
	if err := validateOutputSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate MQTT settings
	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate metrics settings
	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate notify settings
	if err := validateNotifySettings(&settings.Notify); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate export settings
	if err := validateExportSettings(&settings.Export); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// If there are any errors, return the ValidationError
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateAnalyzerSettings validates the analyzer-specific settings.
// An empty command is allowed here: merge-only invocations never start the
// analyzer, and commands that do require it check at startup.
func validateAnalyzerSettings(settings *AnalyzerConfig) error {
	var errs []string

	if settings.MinConfidence < 0 || settings.MinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("analyzer minconfidence must be between 0 and 1, got %v", settings.MinConfidence))
	}

	if settings.Timeout < 0 {
		errs = append(errs, "analyzer timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateBatchSettings validates the batch dispatch settings
func validateBatchSettings(settings *BatchConfig) error {
	if settings.Workers < 0 {
		return fmt.Errorf("batch workers must not be negative, got %d", settings.Workers)
	}
	return nil
}

// validateWatchSettings validates the watch mode settings
func validateWatchSettings(settings *WatchConfig) error {
	var errs []string

	if settings.SettleTime <= 0 {
		errs = append(errs, "watch settletime must be positive")
	}
	if settings.Poll <= 0 {
		errs = append(errs, "watch poll must be positive")
	}
	if settings.Cooldown < 0 {
		errs = append(errs, "watch cooldown must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateOutputSettings validates result output settings
func validateOutputSettings(settings *Settings) error {
	var errs []string

	if settings.Output.MasterName == "" {
		errs = append(errs, "output mastername must not be empty")
	} else {
		// The master name is compared against discovered file names during
		// merge, so it must be a bare file name, not a path.
		if settings.Output.MasterName != filepath.Base(settings.Output.MasterName) {
			errs = append(errs, fmt.Sprintf("output mastername must be a file name without directories, got %q", settings.Output.MasterName))
		}
		if !strings.EqualFold(filepath.Ext(settings.Output.MasterName), ".csv") {
			errs = append(errs, fmt.Sprintf("output mastername must have a .csv extension, got %q", settings.Output.MasterName))
		}
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		errs = append(errs, "output sqlite path must not be empty when sqlite is enabled")
	}

	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Host == "" {
			errs = append(errs, "output mysql host must not be empty when mysql is enabled")
		}
		if settings.Output.MySQL.Database == "" {
			errs = append(errs, "output mysql database must not be empty when mysql is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateMQTTSettings validates the MQTT settings
func validateMQTTSettings(settings *MQTTConfig) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if settings.Broker == "" {
		errs = append(errs, "mqtt broker must not be empty when mqtt is enabled")
	}
	if settings.Topic == "" {
		errs = append(errs, "mqtt topic must not be empty when mqtt is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateMetricsSettings validates the metrics endpoint settings
func validateMetricsSettings(settings *MetricsConfig) error {
	if !settings.Enabled {
		return nil
	}

	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("metrics listen address %q is invalid: %w", settings.Listen, err)
	}
	return nil
}

// validateNotifySettings validates the notification settings
func validateNotifySettings(settings *NotifyConfig) error {
	if settings.Enabled && len(settings.URLs) == 0 {
		return fmt.Errorf("notify urls must not be empty when notifications are enabled")
	}
	return nil
}

// validateExportSettings validates the export target settings
func validateExportSettings(settings *ExportConfig) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string

	if !settings.Local.Enabled && !settings.FTP.Enabled && !settings.SFTP.Enabled {
		errs = append(errs, "export is enabled but no export target is enabled")
	}
	if settings.Local.Enabled && settings.Local.Path == "" {
		errs = append(errs, "export local path must not be empty")
	}
	if settings.FTP.Enabled && settings.FTP.Host == "" {
		errs = append(errs, "export ftp host must not be empty")
	}
	if settings.SFTP.Enabled {
		if settings.SFTP.Host == "" {
			errs = append(errs, "export sftp host must not be empty")
		}
		if settings.SFTP.Password == "" && settings.SFTP.KeyFile == "" {
			errs = append(errs, "export sftp requires a password or a key file")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
