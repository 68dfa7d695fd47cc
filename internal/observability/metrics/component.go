package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ComponentMetrics is a Recorder backed by Prometheus collectors, one set
// per pipeline component (correlator, capture, mqtt, datastore).
type ComponentMetrics struct {
	component string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

// NewComponentMetrics creates and registers the collectors for component.
func NewComponentMetrics(registry *prometheus.Registry, component string) (*ComponentMetrics, error) {
	m := &ComponentMetrics{component: component}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register %s metrics: %w", component, err)
	}
	return m, nil
}

func (m *ComponentMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: m.component,
			Name:      "operations_total",
			Help:      fmt.Sprintf("Total number of %s operations by outcome", m.component),
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: m.component,
			Name:      "operation_duration_seconds",
			Help:      fmt.Sprintf("Duration of %s operations", m.component),
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: m.component,
			Name:      "errors_total",
			Help:      fmt.Sprintf("Total number of %s errors by type", m.component),
		},
		[]string{"operation", "error_type"},
	)
}

func (m *ComponentMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *ComponentMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *ComponentMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Describe implements prometheus.Collector.
func (m *ComponentMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *ComponentMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
}
