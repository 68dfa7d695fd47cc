package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := ConfigFromSettings(&conf.MQTTSettings{
		Broker:   "tcp://broker.example:1883",
		Topic:    "corrbuf",
		ClientID: "corr-1",
		Username: "u",
		Password: "p",
		Retain:   true,
	})
	assert.Equal(t, "corr-1", cfg.ClientID)
	assert.True(t, cfg.Retain)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultPublishTimeout, cfg.PublishTimeout)
}

func TestBuildOptions(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{
		Broker:         "tcp://127.0.0.1:1883",
		ClientID:       "corr-1",
		Username:       "user",
		Password:       "secret",
		ConnectTimeout: 3 * time.Second,
	}, nil).(*client)

	opts := c.buildOptions()
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "127.0.0.1:1883", opts.Servers[0].Host)
	assert.Equal(t, "corr-1", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.CleanSession)
	assert.Equal(t, 3*time.Second, opts.ConnectTimeout)
}

func TestConnectRejectsBadBroker(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{Broker: "not a url"}, nil)
	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestConnectCooldown(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{Broker: "://", ReconnectCooldown: time.Hour}, nil)
	_ = c.Connect(t.Context())
	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
}

func TestPublishWhenNotConnected(t *testing.T) {
	t.Parallel()

	rec := metrics.NewTestRecorder()
	c := NewClient(Config{Broker: "tcp://127.0.0.1:1883"}, rec)
	err := c.Publish(context.Background(), "t", []byte("{}"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.Equal(t, 1, rec.OperationCount("publish", "not_connected"))
	assert.False(t, c.IsConnected())
	c.Disconnect()
}
