// Package telemetry sets up Sentry error reporting and connects it to the
// enhanced error builder.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
)

var initialized atomic.Bool

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init starts the Sentry client when settings enable it and registers the
// error reporter. transport is nil in production; tests pass a
// MockTransport.
func Init(settings *conf.SentrySettings, version string, transport sentry.Transport) error {
	if !settings.Enabled {
		GetLogger().Debug("sentry telemetry disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       settings.SampleRate,
		Environment:      settings.Environment,
		Release:          fmt.Sprintf("corrbuf@%s", version),
		AttachStacktrace: false,
		ServerName:       "",
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)
	GetLogger().Info("sentry telemetry enabled",
		logger.String("environment", settings.Environment),
		logger.Float64("sample_rate", settings.SampleRate))
	return nil
}

// Flush waits up to timeout for queued events. It is a no-op when Init did
// not enable Sentry.
func Flush(timeout time.Duration) bool {
	if !initialized.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// applyPrivacyFilters strips host and user identification from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
