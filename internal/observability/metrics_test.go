package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesComponents(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Correlator.RecordOperation("correlate", "success")
	m.Capture.RecordError("write_record", "io")
	m.Pool.RecordOperation("publish", "accepted")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `corrbuf_correlator_operations_total{operation="correlate",status="success"} 1`)
	assert.Contains(t, text, `corrbuf_capture_errors_total{error_type="io",operation="write_record"} 1`)
	assert.Contains(t, text, `corrbuf_pool_operations_total{operation="publish",status="accepted"} 1`)
	assert.Contains(t, text, "go_goroutines")
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	t.Parallel()

	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}
