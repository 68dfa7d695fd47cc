// Package correlator is the set consumer of the buffer pool: it waits for a
// matched set of antenna buffers, correlates them and hands the result to
// its sinks.
package correlator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

const (
	opCorrelate = "correlate"
	opSink      = "sink"
)

// Pool is the consumer side of corrpool.Pool used by the correlator.
type Pool interface {
	WaitForCompleteSet(ctx context.Context) (corrpool.BufferSet, error)
	ReleaseSet(set corrpool.BufferSet)
	Header(id corrpool.BufferID) corrpool.Header
	Samples(id corrpool.BufferID) []complex64
}

// Sink receives correlation results. Sinks run on the correlator
// goroutine after the buffers were released, so a slow sink delays the
// next match but never holds pool buffers.
type Sink interface {
	Name() string
	Consume(ctx context.Context, r Result) error
}

// Options configures a Correlator.
type Options struct {
	Sinks    []Sink
	Logger   logger.Logger
	Recorder metrics.Recorder
}

// Correlator consumes matched sets until its context ends.
type Correlator struct {
	pool     Pool
	sinks    []Sink
	log      logger.Logger
	recorder metrics.Recorder
	now      func() time.Time

	sets       atomic.Uint64
	sinkErrors atomic.Uint64
}

// New creates a correlator reading from pool.
func New(pool Pool, opts Options) *Correlator {
	if opts.Logger == nil {
		opts.Logger = GetLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoOpRecorder{}
	}
	return &Correlator{
		pool:     pool,
		sinks:    opts.Sinks,
		log:      opts.Logger,
		recorder: opts.Recorder,
		now:      time.Now,
	}
}

// Run processes sets until ctx is cancelled, then returns nil.
func (c *Correlator) Run(ctx context.Context) error {
	c.log.Info("correlator started", logger.Int("sinks", len(c.sinks)))
	defer func() {
		c.log.Info("correlator stopped", logger.Uint64("sets", c.sets.Load()))
	}()

	for {
		set, err := c.pool.WaitForCompleteSet(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New(err).
				Component("correlator").
				Category(errors.CategoryCorrelation).
				Context("operation", "wait_for_complete_set").
				Build()
		}
		r := c.process(set)
		c.emit(ctx, r)
	}
}

// process correlates set and releases its buffers.
func (c *Correlator) process(set corrpool.BufferSet) Result {
	start := time.Now()
	defer c.pool.ReleaseSet(set)

	r := Result{
		Time:    c.now(),
		Channel: set.Channel,
		Beam:    set.Beam,
		Present: make([]bool, len(set.IDs)),
	}
	streams := make([][]complex64, len(set.IDs))
	first := true
	for a, id := range set.IDs {
		if id == corrpool.NoBuffer {
			continue
		}
		r.Present[a] = true
		h := c.pool.Header(id)
		samples := c.pool.Samples(id)
		// A short record only contributes the samples it declared.
		if n := int(h.SampleCount); n > 0 && n < len(samples) {
			samples = samples[:n]
		}
		streams[a] = samples
		if first {
			r.Sequence = h.Sequence
			first = false
		}
	}
	r.Power, r.Pairs = Correlate(streams)
	r.Samples = minLen(streams)

	c.sets.Add(1)
	c.recorder.RecordOperation(opCorrelate, "success")
	c.recorder.RecordDuration(opCorrelate, time.Since(start).Seconds())
	return r
}

func minLen(streams [][]complex64) int {
	n := -1
	for _, s := range streams {
		if s != nil && (n < 0 || len(s) < n) {
			n = len(s)
		}
	}
	return max(n, 0)
}

func (c *Correlator) emit(ctx context.Context, r Result) {
	for _, s := range c.sinks {
		if err := s.Consume(ctx, r); err != nil {
			c.sinkErrors.Add(1)
			c.recorder.RecordError(opSink, s.Name())
			c.log.Warn("sink failed",
				logger.String("sink", s.Name()),
				logger.Int("channel", r.Channel),
				logger.Int("beam", r.Beam),
				logger.Error(err))
		}
	}
}

// Sets is the number of sets correlated so far.
func (c *Correlator) Sets() uint64 { return c.sets.Load() }

// SinkErrors is the number of failed sink deliveries.
func (c *Correlator) SinkErrors() uint64 { return c.sinkErrors.Load() }
