package receiver

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/corrpool"
)

// datagram encodes a wire record: header then little-endian float32 I/Q
// pairs, all set to v.
func datagram(pool *corrpool.Pool, h corrpool.Header, v complex64) []byte {
	b := make([]byte, pool.BufferSize())
	h.Encode(b)
	for i := corrpool.HeaderSize; i < len(b); i += corrpool.SampleSize {
		binary.LittleEndian.PutUint32(b[i:], math.Float32bits(real(v)))
		binary.LittleEndian.PutUint32(b[i+4:], math.Float32bits(imag(v)))
	}
	return b
}

func TestUDPSourceReceivesIntoPool(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 2, 4)
	src, err := ListenUDP("127.0.0.1:0", pool.BufferSize(), UDPOptions{ReadBuffer: 1 << 16})
	require.NoError(t, err)

	f := NewFiller(pool, src, quietLogger(), nil, nil)
	g := &Group{fillers: []*Filler{f}, sources: []Source{src}, log: quietLogger()}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	conn, err := net.Dial("udp4", src.Addr())
	require.NoError(t, err)
	defer conn.Close()

	// Short datagram first, then a valid one for antenna 1.
	_, err = conn.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	_, err = conn.Write(datagram(pool, corrpool.Header{Antenna: 1, Sequence: 42, SampleCount: uint32(pool.SampleCount())}, complex(0.5, -0.5)))
	require.NoError(t, err)

	k := corrpool.Key{Antenna: 1}
	require.Eventually(t, func() bool {
		return pool.Lookup(k) != corrpool.NoBuffer
	}, 2*time.Second, 5*time.Millisecond)

	id := pool.Lookup(k)
	assert.Equal(t, uint64(42), pool.Header(id).Sequence)
	assert.Equal(t, complex64(complex(0.5, -0.5)), pool.Samples(id)[0])
	assert.Equal(t, uint64(1), f.Stats().Skipped)
	assert.Equal(t, uint64(1), f.Stats().Published)

	cancel()
	require.NoError(t, <-done)
}

func TestUDPSourceDropsOnOverflow(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t, 1, 1)
	_, ok := pool.AcquireForFill()
	require.True(t, ok)

	src, err := ListenUDP("127.0.0.1:0", pool.BufferSize(), UDPOptions{})
	require.NoError(t, err)
	defer src.Close()
	f := NewFiller(pool, src, quietLogger(), nil, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	conn, err := net.Dial("udp4", src.Addr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(make([]byte, pool.BufferSize()))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.Stats().Dropped == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestListenUDPRejectsBadMulticastGroup(t *testing.T) {
	t.Parallel()

	_, err := ListenUDP("127.0.0.1:0", 64, UDPOptions{MulticastGroup: "10.0.0.1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid multicast group")
}
