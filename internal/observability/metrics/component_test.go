package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewComponentMetrics(registry, "capture")
	require.NoError(t, err)

	m.RecordOperation("write_record", "success")
	m.RecordOperation("write_record", "success")
	m.RecordOperation("write_record", "error")
	m.RecordDuration("write_record", 0.002)
	m.RecordError("write_record", "disk_full")

	assert.InDelta(t, 2, testutil.ToFloat64(m.operationsTotal.WithLabelValues("write_record", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues("write_record", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues("write_record", "disk_full")), 0)

	expected := `
# HELP corrbuf_capture_errors_total Total number of capture errors by type
# TYPE corrbuf_capture_errors_total counter
corrbuf_capture_errors_total{error_type="disk_full",operation="write_record"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "corrbuf_capture_errors_total"))
}

func TestComponentMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewComponentMetrics(registry, "mqtt")
	require.NoError(t, err)

	_, err = NewComponentMetrics(registry, "mqtt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt")
}

func TestTestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewTestRecorder()
	r.RecordOperation("publish", "success")
	r.RecordOperation("publish", "success")
	r.RecordDuration("publish", 0.5)
	r.RecordError("publish", "timeout")

	tr := r.(*TestRecorder)
	assert.Equal(t, 2, tr.OperationCount("publish", "success"))
	assert.Equal(t, []float64{0.5}, tr.Durations("publish"))
	assert.Equal(t, 1, tr.ErrorCount("publish", "timeout"))

	tr.Reset()
	assert.Zero(t, tr.OperationCount("publish", "success"))
}
