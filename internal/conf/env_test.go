package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		validate func(string) error
		value    string
		wantErr  bool
	}{
		{"bool true", validateEnvBool, "true", false},
		{"bool junk", validateEnvBool, "yes please", true},
		{"positive int", validateEnvPositiveInt, "12", false},
		{"zero int", validateEnvPositiveInt, "0", true},
		{"not an int", validateEnvPositiveInt, "three", true},
		{"matcher quorum", validateEnvMatcher, "quorum", false},
		{"matcher unknown", validateEnvMatcher, "majority", true},
		{"mode udp", validateEnvReceiverMode, "udp", false},
		{"mode unknown", validateEnvReceiverMode, "file", true},
		{"datastore mysql", validateEnvDatastoreType, "mysql", false},
		{"datastore unknown", validateEnvDatastoreType, "postgres", true},
		{"broker tcp", validateEnvBrokerURL, "tcp://broker:1883", false},
		{"broker tls", validateEnvBrokerURL, "ssl://broker:8883", false},
		{"broker no host", validateEnvBrokerURL, "tcp://", true},
		{"broker http", validateEnvBrokerURL, "http://broker", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	resetViper(t)
	t.Setenv("CORRBUF_POOL_ANTENNAS", "-1")
	t.Setenv("CORRBUF_RECEIVERS_MODE", "file")

	err := configureEnvironmentVariables()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "CORRBUF_POOL_ANTENNAS")
		assert.Contains(t, err.Error(), "CORRBUF_RECEIVERS_MODE")
	}
}
