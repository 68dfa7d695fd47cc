package corrpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ids      []BufferID
		complete bool
		distinct []BufferID
	}{
		{"complete", []BufferID{4, 1, 7}, true, []BufferID{4, 1, 7}},
		{"duplicated", []BufferID{4, 1, 1}, true, []BufferID{4, 1}},
		{"missing antenna", []BufferID{4, NoBuffer, 7}, false, []BufferID{4, 7}},
		{"empty", nil, false, []BufferID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := BufferSet{IDs: tt.ids}
			assert.Equal(t, tt.complete, s.Complete())
			assert.Equal(t, tt.distinct, s.Distinct())
		})
	}
}

func TestAllAntennasScanOrder(t *testing.T) {
	t.Parallel()

	ix := newReadyIndex(2, 2, 2, 16)
	ix.put(key(0, 1, 1), 1)
	ix.put(key(1, 1, 1), 2)
	ix.put(key(0, 1, 0), 3)

	set, ok := AllAntennas{}.FindCompleteSet(ix)
	require.True(t, ok)
	assert.Equal(t, BufferSet{Channel: 1, Beam: 1, IDs: []BufferID{1, 2}}, set)

	ix.put(key(1, 1, 0), 4)
	set, ok = AllAntennas{}.FindCompleteSet(ix)
	require.True(t, ok)
	assert.Equal(t, 0, set.Beam)

	_, ok = AllAntennas{}.FindCompleteSet(newReadyIndex(2, 2, 2, 16))
	assert.False(t, ok)
}

func TestQuorum(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Quorum{Min: 2}.Validate(3))
	assert.Error(t, Quorum{Min: 0}.Validate(3))
	assert.Error(t, Quorum{Min: 4}.Validate(3))

	p := newTestPool(t, Config{Matcher: Quorum{Min: 2}})
	a0 := fill(t, p, key(0, 0, 0))
	a2 := fill(t, p, key(2, 0, 0))

	set, err := p.WaitForCompleteSet(context.Background())
	require.NoError(t, err)
	assert.False(t, set.Complete())
	assert.Equal(t, []BufferID{a0, NoBuffer, a2}, set.IDs)
	assert.Equal(t, StatusBeingProcessed, p.Status(a0))
	assert.Equal(t, StatusBeingProcessed, p.Status(a2))

	p.ReleaseSet(set)
	assert.Equal(t, p.Capacity(), p.Stats().Free)
	checkInvariants(t, p)
}

func TestCustomStrategyMustMatchIndex(t *testing.T) {
	t.Parallel()

	bogus := strategyFunc(func(IndexView) (BufferSet, bool) {
		return BufferSet{IDs: []BufferID{0, 1, 2}}, true
	})
	p := newTestPool(t, Config{Matcher: bogus})
	requireViolation(t, func() { _, _ = p.WaitForCompleteSet(context.Background()) })
	checkInvariants(t, p)
}

type strategyFunc func(IndexView) (BufferSet, bool)

func (f strategyFunc) FindCompleteSet(v IndexView) (BufferSet, bool) { return f(v) }
