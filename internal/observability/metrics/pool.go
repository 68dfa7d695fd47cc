package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corrlab/corrbuf/internal/corrpool"
)

// StatsSource is anything that can report buffer pool statistics.
type StatsSource interface {
	Stats() corrpool.Stats
}

// PoolMetrics exports buffer pool activity. Operation counters are fed by
// the pool through corrpool.Recorder; buffer-state gauges are read from the
// attached StatsSource at scrape time so they never drift.
type PoolMetrics struct {
	operationsTotal *prometheus.CounterVec
	waitDuration    *prometheus.HistogramVec

	buffersDesc  *prometheus.Desc
	capacityDesc *prometheus.Desc
	indexedDesc  *prometheus.Desc

	source StatsSource
}

var _ corrpool.Recorder = (*PoolMetrics)(nil)

// NewPoolMetrics creates and registers the pool collectors. Attach must be
// called once the pool exists for the gauges to report anything.
func NewPoolMetrics(registry *prometheus.Registry) (*PoolMetrics, error) {
	m := &PoolMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}
	return m, nil
}

func (m *PoolMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "operations_total",
			Help:      "Total number of buffer pool operations by outcome",
		},
		[]string{"operation", "status"}, // e.g. acquire_for_fill/overflow, publish/superseded
	)

	m.waitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "wait_duration_seconds",
			Help:      "Time consumers spent blocked waiting for ready buffers",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
		},
		[]string{"operation"},
	)

	m.buffersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "buffers"),
		"Number of buffers in each lifecycle state",
		[]string{"status"}, nil,
	)
	m.capacityDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "capacity_buffers"),
		"Total number of buffers in the pool",
		nil, nil,
	)
	m.indexedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "ready_index_entries"),
		"Occupied slots in the ready index",
		nil, nil,
	)
}

// Attach sets the pool whose state the gauges report.
func (m *PoolMetrics) Attach(source StatsSource) {
	m.source = source
}

// RecordOperation implements corrpool.Recorder.
func (m *PoolMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements corrpool.Recorder.
func (m *PoolMetrics) RecordDuration(operation string, seconds float64) {
	m.waitDuration.WithLabelValues(operation).Observe(seconds)
}

// Describe implements prometheus.Collector.
func (m *PoolMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.waitDuration.Describe(ch)
	ch <- m.buffersDesc
	ch <- m.capacityDesc
	ch <- m.indexedDesc
}

// Collect implements prometheus.Collector.
func (m *PoolMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.waitDuration.Collect(ch)

	if m.source == nil {
		return
	}
	s := m.source.Stats()
	states := []struct {
		status corrpool.BufferStatus
		n      int
	}{
		{corrpool.StatusFree, s.Free},
		{corrpool.StatusBeingFilled, s.BeingFilled},
		{corrpool.StatusReady, s.Ready},
		{corrpool.StatusBeingProcessed, s.BeingProcessed},
	}
	for _, st := range states {
		ch <- prometheus.MustNewConstMetric(m.buffersDesc, prometheus.GaugeValue, float64(st.n), st.status.String())
	}
	ch <- prometheus.MustNewConstMetric(m.capacityDesc, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(m.indexedDesc, prometheus.GaugeValue, float64(s.Indexed))
}
