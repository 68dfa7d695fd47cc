package telemetry

import (
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/errors"
)

// Not parallel: Sentry and the error reporter are process globals.

func TestInitDisabledIsNoop(t *testing.T) {
	require.NoError(t, Init(&conf.SentrySettings{Enabled: false}, "test", nil))
	assert.True(t, Flush(time.Millisecond))
}

func TestInitReportsEnhancedErrors(t *testing.T) {
	transport := NewMockTransport()
	t.Cleanup(func() {
		errors.SetTelemetryReporter(nil)
		sentry.CurrentHub().BindClient(nil)
	})

	require.NoError(t, Init(&conf.SentrySettings{
		Enabled:     true,
		DSN:         "https://public@sentry.example.com/1",
		Environment: "test",
		SampleRate:  1,
	}, "1.2.3", transport))

	_ = errors.Newf("pool exhausted").
		Component("corrpool").
		Category(errors.CategoryResource).
		Context("operation", "acquire_for_fill").
		Build()
	require.True(t, Flush(time.Second))

	events := transport.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "corrpool", ev.Tags["component"])
	assert.Equal(t, "resource", ev.Tags["category"])
	assert.Equal(t, "corrbuf@1.2.3", ev.Release)
	assert.Empty(t, ev.ServerName)
}

func TestApplyPrivacyFilters(t *testing.T) {
	ev := &sentry.Event{
		ServerName: "host-1",
		User:       sentry.User{ID: "42"},
		Tags:       map[string]string{"hostname": "host-1", "component": "api"},
		Contexts:   map[string]sentry.Context{"os": {"name": "linux"}, "app": {"v": 1}},
	}
	ev = applyPrivacyFilters(ev)
	assert.Empty(t, ev.ServerName)
	assert.True(t, ev.User.IsEmpty())
	assert.NotContains(t, ev.Tags, "hostname")
	assert.Contains(t, ev.Tags, "component")
	assert.NotContains(t, ev.Contexts, "os")
	assert.Contains(t, ev.Contexts, "app")
}
