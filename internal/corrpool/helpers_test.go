package corrpool

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
)

// recorder counts operations reported by the pool.
type recorder struct {
	ops       map[string]int
	durations map[string]int
}

func newRecorder() *recorder {
	return &recorder{ops: map[string]int{}, durations: map[string]int{}}
}

func (r *recorder) RecordOperation(operation, status string)   { r.ops[operation+"/"+status]++ }
func (r *recorder) RecordDuration(operation string, _ float64) { r.durations[operation]++ }

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.Beams == 0 {
		cfg.Beams = 1
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 6
	}
	if cfg.SampleCount == 0 {
		cfg.SampleCount = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func key(a, c, b int) Key {
	return Key{Antenna: a, Channel: c, Beam: b}
}

// fill acquires a buffer, stamps it with k and publishes it.
func fill(t *testing.T, p *Pool, k Key) BufferID {
	t.Helper()
	id, ok := p.AcquireForFill()
	require.True(t, ok, "pool exhausted while filling %+v", k)
	p.SetHeader(id, Header{
		Antenna:     uint16(k.Antenna),
		Channel:     uint16(k.Channel),
		Beam:        uint16(k.Beam),
		SampleCount: uint32(p.SampleCount()),
	})
	p.Publish(id)
	return id
}

// checkInvariants asserts that an id is indexed exactly when it is Ready and
// that the per-status counters agree with the status table.
func checkInvariants(t *testing.T, p *Pool) {
	t.Helper()
	p.guard.with(func(st *poolState) {
		var counts [numStatuses]int
		for i, s := range st.status {
			id := BufferID(i)
			counts[s]++
			assert.Equal(t, s == StatusReady, st.index.referenced(id),
				"buffer %d is %s, indexed=%v", id, s, st.index.referenced(id))
		}
		for _, id := range st.index.slots {
			if id != NoBuffer {
				assert.Equal(t, StatusReady, st.status[id], "indexed buffer %d", id)
			}
		}
		assert.Equal(t, counts, st.counts)
	})
}

// requireViolation runs fn and asserts it panics with a state error.
func requireViolation(t *testing.T, fn func()) *errors.EnhancedError {
	t.Helper()
	var ee *errors.EnhancedError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected contract violation panic")
			var ok bool
			ee, ok = r.(*errors.EnhancedError)
			require.True(t, ok, "panic value %T", r)
		}()
		fn()
	}()
	assert.Equal(t, errors.CategoryState, ee.Category)
	assert.Equal(t, componentName, ee.GetComponent())
	return ee
}
