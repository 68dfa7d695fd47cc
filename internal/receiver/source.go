package receiver

import (
	"context"

	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
)

// Pool is the filler side of corrpool.Pool.
type Pool interface {
	AcquireForFill() (corrpool.BufferID, bool)
	Publish(id corrpool.BufferID)
	Discard(id corrpool.BufferID)
	Raw(id corrpool.BufferID) []byte
	SetHeader(id corrpool.BufferID, h corrpool.Header)
	Samples(id corrpool.BufferID) []complex64
	BufferSize() int
	SampleCount() int
}

// Source produces records for one stream.
type Source interface {
	// Name identifies the stream in logs and metrics.
	Name() string

	// Fill writes the next record into buffer id. Returning ErrSkipRecord
	// discards the buffer and keeps the stream running; any other error
	// ends it.
	Fill(ctx context.Context, p Pool, id corrpool.BufferID) error

	// Drop consumes the next record without storing it. It is called when
	// the pool had no free buffer.
	Drop(ctx context.Context) error

	// Close releases the resources held by the source.
	Close() error
}

// ErrSkipRecord marks a record that was consumed but is unusable, such as
// a datagram of the wrong size.
var ErrSkipRecord = errors.NewStd("record skipped")
