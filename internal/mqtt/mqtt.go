// Package mqtt publishes correlation summaries to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/logger"
)

// Client defines the MQTT operations the publisher needs.
type Client interface {
	// Connect establishes the broker connection.
	Connect(ctx context.Context) error

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Disconnect closes the connection.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string // base topic, results go to <Topic>/results
	Retain            bool
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// Default timeouts.
const (
	DefaultReconnectCooldown = 5 * time.Second
	DefaultConnectTimeout    = 30 * time.Second
	DefaultPublishTimeout    = 10 * time.Second
	DefaultDisconnectTimeout = 250 * time.Millisecond
)

// ConfigFromSettings maps MQTT settings onto a Config with default
// timeouts.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	return Config{
		Broker:            s.Broker,
		ClientID:          s.ClientID,
		Username:          s.Username,
		Password:          s.Password,
		Topic:             s.Topic,
		Retain:            s.Retain,
		ReconnectCooldown: DefaultReconnectCooldown,
		ConnectTimeout:    DefaultConnectTimeout,
		PublishTimeout:    DefaultPublishTimeout,
		DisconnectTimeout: DefaultDisconnectTimeout,
	}
}

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
