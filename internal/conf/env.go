// env.go - Environment variable configuration and validation for fieldscan
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Analyzer configuration
		{"analyzer.command", "FIELDSCAN_ANALYZER_COMMAND", nil},
		{"analyzer.minconfidence", "FIELDSCAN_MIN_CONFIDENCE", validateEnvConfidence},
		{"analyzer.timeout", "FIELDSCAN_ANALYZER_TIMEOUT", nil},

		// Input and output locations
		{"input.path", "FIELDSCAN_INPUT_PATH", nil},
		{"output.path", "FIELDSCAN_OUTPUT_PATH", nil},

		// Batch dispatch
		{"batch.workers", "FIELDSCAN_WORKERS", validateEnvWorkers},

		// Credentials, kept out of the config file on shared systems
		{"output.mysql.password", "FIELDSCAN_MYSQL_PASSWORD", nil},
		{"mqtt.password", "FIELDSCAN_MQTT_PASSWORD", nil},
		{"export.ftp.password", "FIELDSCAN_FTP_PASSWORD", nil},
		{"export.sftp.password", "FIELDSCAN_SFTP_PASSWORD", nil},

		// Debug switch
		{"debug", "FIELDSCAN_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			return fmt.Errorf("failed to bind %s: %w", binding.EnvVar, err)
		}

		// Validate the current value if the variable is set
		value, present := os.LookupEnv(binding.EnvVar)
		if !present || binding.Validate == nil {
			continue
		}
		if err := binding.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", binding.EnvVar, err)
		}
	}
	return nil
}

func validateEnvConfidence(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", value)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("confidence %v out of range [0, 1]", f)
	}
	return nil
}

func validateEnvWorkers(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer: %q", value)
	}
	if n < 0 {
		return fmt.Errorf("worker count %d must not be negative", n)
	}
	return nil
}

func validateEnvBool(value string) error {
	switch strings.ToLower(value) {
	case "true", "false", "1", "0", "yes", "no":
		return nil
	}
	return fmt.Errorf("not a boolean: %q", value)
}
