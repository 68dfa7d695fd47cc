// Package observability wires the Prometheus collectors of every corrbuf
// component into one registry. Sentry error telemetry lives in the
// telemetry package.
package observability

import (
	"fmt"
	stdlog "log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Pool       *metrics.PoolMetrics
	Correlator *metrics.ComponentMetrics
	Capture    *metrics.ComponentMetrics
	Receiver   *metrics.ComponentMetrics
	MQTT       *metrics.ComponentMetrics
	Datastore  *metrics.ComponentMetrics
}

// NewMetrics creates a registry with Go runtime and process collectors and
// every component collector registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	poolMetrics, err := metrics.NewPoolMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool metrics: %w", err)
	}

	m := &Metrics{registry: registry, Pool: poolMetrics}
	components := []struct {
		name string
		dst  **metrics.ComponentMetrics
	}{
		{"correlator", &m.Correlator},
		{"capture", &m.Capture},
		{"receiver", &m.Receiver},
		{"mqtt", &m.MQTT},
		{"datastore", &m.Datastore},
	}
	for _, c := range components {
		cm, err := metrics.NewComponentMetrics(registry, c.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metrics: %w", c.name, err)
		}
		*c.dst = cm
	}

	return m, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(logWriter{}, "", 0),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// logWriter forwards promhttp error lines to the module logger.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Error("metrics handler error", logger.String("error", string(p)))
	return len(p), nil
}
