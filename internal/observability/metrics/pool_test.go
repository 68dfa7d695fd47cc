package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/corrpool"
)

type fixedStats corrpool.Stats

func (f fixedStats) Stats() corrpool.Stats { return corrpool.Stats(f) }

func TestPoolMetricsGaugesFollowSource(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewPoolMetrics(registry)
	require.NoError(t, err)

	// Without a source only the counters and histograms are exported, and
	// those stay empty until something is recorded.
	n, err := testutil.GatherAndCount(registry, "corrbuf_pool_buffers")
	require.NoError(t, err)
	assert.Zero(t, n)

	m.Attach(fixedStats{Capacity: 6, Free: 3, BeingFilled: 1, Ready: 2, Indexed: 2})

	n, err = testutil.GatherAndCount(registry, "corrbuf_pool_buffers")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "one series per buffer status")

	families, err := registry.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "corrbuf_pool_buffers" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			got[metric.GetLabel()[0].GetValue()] = metric.GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"free":            3,
		"being_filled":    1,
		"ready":           2,
		"being_processed": 0,
	}, got)
}

func TestPoolMetricsRecordsPoolOperations(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewPoolMetrics(registry)
	require.NoError(t, err)

	pool, err := corrpool.New(corrpool.Config{
		Antennas:    2,
		Channels:    1,
		Beams:       1,
		Multiplier:  2,
		SampleCount: 4,
		Recorder:    m,
	})
	require.NoError(t, err)
	m.Attach(pool)

	id, ok := pool.AcquireForFill()
	require.True(t, ok)
	pool.Discard(id)

	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues("acquire_for_fill", corrpool.StatusSuccess)), 0)
	expected := `
# HELP corrbuf_pool_capacity_buffers Total number of buffers in the pool
# TYPE corrbuf_pool_capacity_buffers gauge
corrbuf_pool_capacity_buffers 2
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "corrbuf_pool_capacity_buffers"))
}
