package receiver

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func newTestPool(t *testing.T, antennas, multiplier int) *corrpool.Pool {
	t.Helper()
	p, err := corrpool.New(corrpool.Config{
		Antennas:    antennas,
		Channels:    1,
		Beams:       1,
		Multiplier:  multiplier,
		SampleCount: 8,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return p
}

// scriptedSource returns the queued errors from Fill in order, then blocks
// until the context ends.
type scriptedSource struct {
	name  string
	fills []error
	drops int
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Fill(ctx context.Context, p Pool, id corrpool.BufferID) error {
	if len(s.fills) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	err := s.fills[0]
	s.fills = s.fills[1:]
	p.SetHeader(id, corrpool.Header{Antenna: 0, SampleCount: uint32(p.SampleCount())})
	return err
}

func (s *scriptedSource) Drop(ctx context.Context) error {
	s.drops++
	if s.drops > 3 {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *scriptedSource) Close() error { return nil }
