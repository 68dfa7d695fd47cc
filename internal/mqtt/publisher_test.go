package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/correlator"
	"github.com/corrlab/corrbuf/internal/errors"
)

type fakeClient struct {
	connected bool
	err       error
	topics    []string
	payloads  [][]byte
}

func (f *fakeClient) Connect(context.Context) error {
	f.connected = true
	return nil
}

func (f *fakeClient) IsConnected() bool { return f.connected }
func (f *fakeClient) Disconnect()       { f.connected = false }

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return f.err
}

func sampleResult() correlator.Result {
	return correlator.Result{
		Time:     time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC),
		Channel:  1,
		Beam:     2,
		Sequence: 77,
		Samples:  1024,
		Present:  []bool{true, true},
		Power:    []float64{1, 2},
		Pairs:    []correlator.Baseline{{A: 0, B: 1, Real: 1, Imag: 1, Magnitude: 1.4142, Phase: 0.7854}},
	}
}

func TestPublisherPublishesSummary(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{connected: true}
	p := NewPublisher(fc, "site/corr")
	assert.Equal(t, "site/corr/results", p.Topic())

	require.NoError(t, p.Consume(t.Context(), sampleResult()))
	require.Len(t, fc.payloads, 1)
	assert.Equal(t, "site/corr/results", fc.topics[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(fc.payloads[0], &got))
	assert.Equal(t, "2026-05-04T03:02:01Z", got["time"])
	assert.InDelta(t, 77, got["sequence"], 0)
	baselines := got["baselines"].([]any)
	require.Len(t, baselines, 1)
	b := baselines[0].(map[string]any)
	assert.InDelta(t, 1.4142, b["magnitude"], 1e-9)
	assert.NotContains(t, b, "real", "raw cross power is not published")
}

func TestPublisherSkipsWhileDisconnected(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	p := NewPublisher(fc, "corrbuf")
	require.NoError(t, p.Consume(t.Context(), sampleResult()))
	assert.Empty(t, fc.payloads)
}

func TestPublisherReturnsPublishError(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{connected: true, err: errors.NewStd("broker gone")}
	p := NewPublisher(fc, "corrbuf")
	assert.Error(t, p.Consume(t.Context(), sampleResult()))
}
