// env.go - Environment variable configuration and validation for corrbuf
package conf

import (
	"fmt"
	"net/url"
	"os"
	"slices"
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
		// Pool sizing
		{"pool.antennas", "CORRBUF_POOL_ANTENNAS", validateEnvPositiveInt},
		{"pool.channels", "CORRBUF_POOL_CHANNELS", validateEnvPositiveInt},
		{"pool.beams", "CORRBUF_POOL_BEAMS", validateEnvPositiveInt},
		{"pool.multiplier", "CORRBUF_POOL_MULTIPLIER", validateEnvPositiveInt},
		{"pool.samplecount", "CORRBUF_POOL_SAMPLECOUNT", validateEnvPositiveInt},
		{"pool.duplicatesecondantenna", "CORRBUF_POOL_DUPLICATESECONDANTENNA", validateEnvBool},
		{"pool.matcher", "CORRBUF_POOL_MATCHER", validateEnvMatcher},

		// Receivers
		{"receivers.mode", "CORRBUF_RECEIVERS_MODE", validateEnvReceiverMode},

		// Outputs
		{"webserver.listen", "CORRBUF_WEBSERVER_LISTEN", nil},
		{"mqtt.enabled", "CORRBUF_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "CORRBUF_MQTT_BROKER", validateEnvBrokerURL},
		{"mqtt.username", "CORRBUF_MQTT_USERNAME", nil},
		{"mqtt.password", "CORRBUF_MQTT_PASSWORD", nil},
		{"datastore.type", "CORRBUF_DATASTORE_TYPE", validateEnvDatastoreType},
		{"datastore.mysql.password", "CORRBUF_DATASTORE_MYSQL_PASSWORD", nil},
		{"sentry.dsn", "CORRBUF_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvMatcher(value string) error {
	return oneOf(value, MatcherAll, MatcherQuorum)
}

func validateEnvReceiverMode(value string) error {
	return oneOf(value, ReceiverModeUDP, ReceiverModeSimulate)
}

func validateEnvDatastoreType(value string) error {
	return oneOf(value, DatastoreSQLite, DatastoreMySQL)
}

func validateEnvBrokerURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	if !slices.Contains([]string{"tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts"}, u.Scheme) {
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker URL has no host")
	}
	return nil
}

func oneOf(value string, valid ...string) error {
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(valid, ", "))
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
