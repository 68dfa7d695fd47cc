package corrpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentFillersAndConsumer(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	p := newTestPool(t, Config{Channels: 2, Beams: 2, Multiplier: 8, SampleCount: 8})
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var (
		wg       sync.WaitGroup
		sets     atomic.Int64
		overflow atomic.Int64
	)

	for a := range p.Antennas() {
		for c := range p.Channels() {
			for b := range p.Beams() {
				wg.Go(func() {
					var seq uint64
					for ctx.Err() == nil {
						id, ok := p.AcquireForFill()
						if !ok {
							overflow.Add(1)
							time.Sleep(50 * time.Microsecond)
							continue
						}
						seq++
						p.SetHeader(id, Header{
							Antenna:  uint16(a),
							Channel:  uint16(c),
							Beam:     uint16(b),
							Sequence: seq,
						})
						for i := range p.Samples(id) {
							p.Samples(id)[i] = complex(float32(a), float32(seq))
						}
						p.Publish(id)
					}
				})
			}
		}
	}

	wg.Go(func() {
		for {
			set, err := p.WaitForCompleteSet(ctx)
			if err != nil {
				return
			}
			for a, id := range set.IDs {
				h := p.Header(id)
				if int(h.Antenna) != a || int(h.Channel) != set.Channel || int(h.Beam) != set.Beam {
					t.Errorf("buffer %d header %+v in set %d/%d slot %d", id, h, set.Channel, set.Beam, a)
				}
			}
			sets.Add(1)
			p.ReleaseSet(set)
		}
	})

	wg.Wait()
	require.Positive(t, sets.Load(), "consumer never matched a set")

	stats := p.Stats()
	assert.Zero(t, stats.BeingFilled)
	assert.Zero(t, stats.BeingProcessed)
	assert.Equal(t, stats.Capacity, stats.Free+stats.Ready)
	assert.Equal(t, uint64(sets.Load()), stats.SetsTaken)
	assert.Equal(t, uint64(overflow.Load()), stats.Overflows)
	checkInvariants(t, p)
}
