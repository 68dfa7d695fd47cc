package receiver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/corrpool"
)

func TestSimSourceFill(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 2, 2)
	src := NewSimSource(SimConfig{Key: corrpool.Key{Antenna: 1}, Tone: 0})
	assert.Equal(t, "sim/a1/c0/b0", src.Name())

	id, ok := pool.AcquireForFill()
	require.True(t, ok)
	require.NoError(t, src.Fill(t.Context(), pool, id))

	h := pool.Header(id)
	assert.Equal(t, uint16(1), h.Antenna)
	assert.Equal(t, uint32(pool.SampleCount()), h.SampleCount)
	assert.Zero(t, h.Sequence)

	// Zero tone leaves only the antenna offset: a quarter turn for antenna 1.
	for _, s := range pool.Samples(id) {
		assert.InDelta(t, 0, real(s), 1e-6)
		assert.InDelta(t, 1, imag(s), 1e-6)
	}

	require.NoError(t, src.Drop(t.Context()))
	require.NoError(t, src.Fill(t.Context(), pool, id))
	assert.Equal(t, uint64(2), pool.Header(id).Sequence, "drop spends a sequence number")
	pool.Discard(id)
}

func TestSimSourceToneIsContinuous(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 1, 2)
	src := NewSimSource(SimConfig{Tone: 0.125})
	a, _ := pool.AcquireForFill()
	b, _ := pool.AcquireForFill()
	require.NoError(t, src.Fill(t.Context(), pool, a))
	require.NoError(t, src.Fill(t.Context(), pool, b))

	n := pool.SampleCount()
	want := 2 * math.Pi * 0.125 * float64(n)
	got := pool.Samples(b)[0]
	assert.InDelta(t, math.Cos(want), real(got), 1e-5)
	assert.InDelta(t, math.Sin(want), imag(got), 1e-5)
	pool.Discard(a)
	pool.Discard(b)
}

func TestSimSourceHonoursCancellation(t *testing.T) {
	t.Parallel()

	src := NewSimSource(SimConfig{Rate: 0.001})
	require.NoError(t, src.Drop(t.Context()), "first token is available immediately")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Error(t, src.Drop(ctx))
}

func TestSourcesFromSettingsSimulate(t *testing.T) {
	t.Parallel()

	p, err := corrpool.New(corrpool.Config{
		Antennas:               3,
		Channels:               2,
		Beams:                  2,
		Multiplier:             2,
		SampleCount:            4,
		DuplicateSecondAntenna: true,
		Logger:                 quietLogger(),
	})
	require.NoError(t, err)

	sources, err := SourcesFromSettings(&conf.ReceiverSettings{Mode: conf.ReceiverModeSimulate}, p)
	require.NoError(t, err)
	assert.Len(t, sources, 2*2*2, "antenna 2 is mirrored, not simulated")
	for _, s := range sources {
		assert.NotContains(t, s.Name(), "/a2/")
	}

	_, err = SourcesFromSettings(&conf.ReceiverSettings{Mode: "carrier-pigeon"}, p)
	assert.Error(t, err)
}
