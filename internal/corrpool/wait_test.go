package corrpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForCompleteSetBlocksUntilLastAntenna(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, Config{})
	fill(t, p, key(0, 0, 0))
	fill(t, p, key(1, 0, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := p.WaitForCompleteSet(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, p.Stats().Indexed, "a cancelled wait takes nothing")

	type result struct {
		set BufferSet
		err error
	}
	done := make(chan result, 1)
	go func() {
		set, err := p.WaitForCompleteSet(context.Background())
		done <- result{set, err}
	}()

	select {
	case <-done:
		t.Fatal("wait returned before the third antenna was published")
	case <-time.After(20 * time.Millisecond):
	}

	third := fill(t, p, key(2, 0, 0))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.set.Complete())
		assert.Equal(t, third, r.set.IDs[2])
		p.ReleaseSet(r.set)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after the set completed")
	}
	checkInvariants(t, p)
}

func TestWaitForCompleteSetCancel(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := p.WaitForCompleteSet(ctx)
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled wait did not return")
	}
}

func TestWaitReturnsAvailableSetEvenWhenContextDone(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, Config{})
	for a := range 3 {
		fill(t, p, key(a, 0, 0))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := p.WaitForCompleteSet(ctx)
	require.NoError(t, err)
	assert.True(t, set.Complete())
}

func TestLowestKeyWins(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, Config{Channels: 2, Beams: 2, Multiplier: 6})

	// Complete (channel 1, beam 0) first, then (channel 0, beam 1).
	for a := range 3 {
		fill(t, p, key(a, 1, 0))
	}
	for a := range 3 {
		fill(t, p, key(a, 0, 1))
	}

	first, err := p.WaitForCompleteSet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, first.Channel)
	assert.Equal(t, 1, first.Beam)

	second, err := p.WaitForCompleteSet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Channel)
	assert.Equal(t, 0, second.Beam)

	p.ReleaseSet(first)
	p.ReleaseSet(second)
	checkInvariants(t, p)
}

func TestIncompleteKeysStayIndexed(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, Config{Channels: 2, Multiplier: 6})
	partial := fill(t, p, key(0, 0, 0))
	for a := range 3 {
		fill(t, p, key(a, 1, 0))
	}

	set, err := p.WaitForCompleteSet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, set.Channel)
	assert.Equal(t, partial, p.Lookup(key(0, 0, 0)))
	assert.Equal(t, StatusReady, p.Status(partial))
	checkInvariants(t, p)
}

func TestWaitForAnyReady(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, Config{Channels: 2, Multiplier: 6, DuplicateSecondAntenna: true})
	later := fill(t, p, key(0, 1, 0))
	dup := fill(t, p, key(1, 0, 0))

	id, err := p.WaitForAnyReady(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dup, id, "lowest key is channel 0")
	assert.Equal(t, StatusBeingProcessed, p.Status(dup))
	assert.Equal(t, NoBuffer, p.Lookup(key(2, 0, 0)), "every alias is removed")
	checkInvariants(t, p)

	id, err = p.WaitForAnyReady(context.Background())
	require.NoError(t, err)
	assert.Equal(t, later, id)

	p.ReleaseAll([]BufferID{dup, later})
	assert.Equal(t, uint64(2), p.Stats().SinglesTaken)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	id, err = p.WaitForAnyReady(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, NoBuffer, id)
	checkInvariants(t, p)
}

func TestWaitForAnyReadyWakesOnPublish(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, Config{})
	got := make(chan BufferID, 1)
	go func() {
		id, err := p.WaitForAnyReady(context.Background())
		if err != nil {
			id = NoBuffer
		}
		got <- id
	}()

	time.Sleep(10 * time.Millisecond)
	want := fill(t, p, key(2, 0, 0))

	select {
	case id := <-got:
		assert.Equal(t, want, id)
		p.Release(id)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken by publish")
	}
}
