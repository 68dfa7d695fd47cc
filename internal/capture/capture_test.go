package capture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

const testSamples = 16

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func newTestPool(t *testing.T) *corrpool.Pool {
	t.Helper()
	p, err := corrpool.New(corrpool.Config{
		Antennas:    2,
		Channels:    1,
		Beams:       1,
		Multiplier:  4,
		SampleCount: testSamples,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return p
}

func publish(t *testing.T, p *corrpool.Pool, antenna int, v complex64) {
	t.Helper()
	id, ok := p.AcquireForFill()
	require.True(t, ok)
	p.SetHeader(id, corrpool.Header{Antenna: uint16(antenna), SampleCount: testSamples})
	for i := range p.Samples(id) {
		p.Samples(id)[i] = v
	}
	p.Publish(id)
}

func testOptions(t *testing.T) Options {
	return Options{
		Dir:        t.TempDir(),
		RingSize:   1 << 16,
		Scale:      1,
		SampleRate: 8000,
		Logger:     quietLogger(),
	}
}

func readWAV(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile(), "%s is not a valid wav file", path)
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	return d, buf.Data
}

func TestCaptureWritesOneFilePerStream(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	publish(t, pool, 0, complex(0.5, -0.5))
	publish(t, pool, 1, complex(-1, 1))

	opts := testOptions(t)
	opts.MaxRecords = 2
	rec := metrics.NewTestRecorder()
	opts.Recorder = rec
	c, err := New(pool, opts)
	require.NoError(t, err)

	summary, err := c.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), summary.Staged)
	assert.Equal(t, uint64(2), summary.Written)
	assert.Zero(t, summary.Dropped)
	require.Len(t, summary.Files, 2)
	assert.Equal(t, 2, rec.OperationCount(opWrite, "success"))

	s := pool.Stats()
	assert.Equal(t, s.Capacity, s.Free, "buffers are released as soon as they are staged")

	a0 := filepath.Join(opts.Dir, c.Session()+"_a0_c0_b0.wav")
	require.Contains(t, summary.Files, a0)
	d, data := readWAV(t, a0)
	assert.Equal(t, 2, int(d.NumChans))
	assert.Equal(t, 16, int(d.BitDepth))
	assert.Equal(t, 8000, int(d.SampleRate))
	require.Len(t, data, 2*testSamples)
	assert.Equal(t, 16384, data[0], "I channel at half scale")
	assert.Equal(t, -16384, data[1], "Q channel at negative half scale")

	_, data = readWAV(t, filepath.Join(opts.Dir, c.Session()+"_a1_c0_b0.wav"))
	assert.Equal(t, -32767, data[0])
	assert.Equal(t, 32767, data[1])
}

func TestCaptureAppendsAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	c, err := New(pool, testOptions(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	type result struct {
		s   Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.Run(ctx)
		done <- result{s, err}
	}()

	for i := range 3 {
		publish(t, pool, 0, complex(float32(i)/4, 0))
		require.Eventually(t, func() bool { return c.written.Load() == uint64(i+1) }, 2*time.Second, 5*time.Millisecond)
	}
	cancel()
	r := <-done
	require.NoError(t, r.err)
	require.Len(t, r.s.Files, 1)

	_, data := readWAV(t, r.s.Files[0])
	require.Len(t, data, 3*2*testSamples)
	assert.Equal(t, 0, data[0])
	assert.Equal(t, 8192, data[2*testSamples])
	assert.Equal(t, 16384, data[4*testSamples])
}

func TestCaptureRefusesWhenDiskIsShort(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	publish(t, pool, 0, 0)

	opts := testOptions(t)
	opts.MinFreeMB = 1 << 40
	c, err := New(pool, opts)
	require.NoError(t, err)

	summary, err := c.Run(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryResource))
	assert.Contains(t, err.Error(), "insufficient disk space")
	assert.Empty(t, summary.Files)
	assert.Equal(t, pool.Capacity(), pool.Stats().Free)
}

func TestNewRejectsTinyRing(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	opts := testOptions(t)
	opts.RingSize = pool.BufferSize() - 1
	_, err := New(pool, opts)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "smaller than one record"))
}
