// Package capture is the single-buffer consumer of the pool. It copies
// every Ready buffer into a staging ring, releases it at once and lets a
// writer goroutine turn the records into I/Q WAV files.
package capture

import (
	"context"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sync/errgroup"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

const (
	opStage = "stage_record"
	opWrite = "write_record"
)

// Pool is the single-buffer consumer side of corrpool.Pool.
type Pool interface {
	WaitForAnyReady(ctx context.Context) (corrpool.BufferID, error)
	Raw(id corrpool.BufferID) []byte
	Release(id corrpool.BufferID)
	BufferSize() int
	SampleCount() int
}

// Options configures a capture session.
type Options struct {
	Dir        string
	RingSize   int     // staging capacity in bytes, at least one record
	MaxRecords int     // stop after this many staged records, 0 for no limit
	MinFreeMB  int     // minimum free space before opening a file
	Scale      float64 // amplitude mapped to int16 full scale
	SampleRate int
	Logger     logger.Logger
	Recorder   metrics.Recorder
}

// OptionsFromSettings maps capture settings onto Options.
func OptionsFromSettings(s *conf.CaptureSettings) Options {
	return Options{
		Dir:        s.Path,
		RingSize:   s.RingSize,
		MaxRecords: s.MaxRecords,
		MinFreeMB:  s.MinFreeMB,
		Scale:      s.Scale,
		SampleRate: s.SampleRate,
	}
}

// Summary describes a finished session.
type Summary struct {
	Session string
	Staged  uint64
	Written uint64
	Dropped uint64 // records that did not fit in the ring
	Files   []string
}

// Capture runs one capture session.
type Capture struct {
	pool       Pool
	opts       Options
	session    string
	recordSize int
	ring       *ringbuffer.RingBuffer
	wake       chan struct{}
	log        logger.Logger
	recorder   metrics.Recorder

	staged  atomic.Uint64
	written atomic.Uint64
	dropped atomic.Uint64
}

// New prepares a session writing into opts.Dir.
func New(pool Pool, opts Options) (*Capture, error) {
	if opts.Logger == nil {
		opts.Logger = GetLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoOpRecorder{}
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	recordSize := pool.BufferSize()
	if opts.RingSize < recordSize {
		return nil, errors.Newf("ring size %d is smaller than one record of %d bytes", opts.RingSize, recordSize).
			Component("capture").
			Category(errors.CategoryValidation).
			Context("ring_size", opts.RingSize).
			Build()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("capture").
			Category(errors.CategoryFileIO).
			Context("operation", "create_directory").
			Context("path", opts.Dir).
			Build()
	}

	// Whole records only, so the ring never holds a partial one.
	ringSize := opts.RingSize - opts.RingSize%recordSize

	session := uuid.NewString()
	return &Capture{
		pool:       pool,
		opts:       opts,
		session:    session,
		recordSize: recordSize,
		ring:       ringbuffer.New(ringSize),
		wake:       make(chan struct{}, 1),
		log:        opts.Logger.With(logger.String("session", session)),
		recorder:   opts.Recorder,
	}, nil
}

// Session is the id prefixed to every file of this session.
func (c *Capture) Session() string { return c.session }

// Run captures until ctx is cancelled, MaxRecords is reached or the writer
// fails. Files are finalized before it returns.
func (c *Capture) Run(ctx context.Context) (Summary, error) {
	c.log.Info("capture started",
		logger.String("dir", c.opts.Dir),
		logger.Int("record_size", c.recordSize),
		logger.Int("max_records", c.opts.MaxRecords))

	files := newWAVSet(c.opts.Dir, c.session, c.opts.SampleRate, c.opts.Scale,
		uint64(c.opts.MinFreeMB)<<20, c.log)

	g, gctx := errgroup.WithContext(ctx)
	stageDone := make(chan struct{})
	g.Go(func() error {
		defer close(stageDone)
		return c.stage(gctx)
	})
	g.Go(func() error {
		return c.drain(gctx, stageDone, files)
	})
	err := g.Wait()

	summary := Summary{
		Session: c.session,
		Staged:  c.staged.Load(),
		Written: c.written.Load(),
		Dropped: c.dropped.Load(),
		Files:   files.paths(),
	}
	slices.Sort(summary.Files)
	if cerr := files.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	c.log.Info("capture finished",
		logger.Uint64("staged", summary.Staged),
		logger.Uint64("written", summary.Written),
		logger.Uint64("dropped", summary.Dropped),
		logger.Int("files", len(summary.Files)))
	return summary, err
}

// stage moves Ready buffers into the ring and releases them.
func (c *Capture) stage(ctx context.Context) error {
	for c.opts.MaxRecords == 0 || int(c.staged.Load()) < c.opts.MaxRecords {
		id, err := c.pool.WaitForAnyReady(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		_, werr := c.ring.Write(c.pool.Raw(id))
		c.pool.Release(id)
		if werr != nil {
			// ErrIsFull or ErrTooMuchDataToWrite: the writer is behind.
			c.dropped.Add(1)
			c.recorder.RecordOperation(opStage, "dropped")
			continue
		}
		c.staged.Add(1)
		c.recorder.RecordOperation(opStage, "success")
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	c.log.Info("record limit reached", logger.Int("max_records", c.opts.MaxRecords))
	return nil
}

// drain writes staged records until staging has stopped and the ring is
// empty. A cancelled context still flushes what was staged.
func (c *Capture) drain(ctx context.Context, stageDone <-chan struct{}, files *wavSet) error {
	raw := make([]byte, c.recordSize)
	samples := make([]complex64, 0, c.pool.SampleCount())
	for {
		for c.ring.Length() >= c.recordSize {
			if _, err := c.ring.Read(raw); err != nil {
				return errors.New(err).
					Component("capture").
					Category(errors.CategoryCapture).
					Context("operation", "read_ring").
					Build()
			}
			start := time.Now()
			var h corrpool.Header
			h, samples = decodeRecord(raw, samples)
			if err := files.write(h.Key(), samples); err != nil {
				c.recorder.RecordError(opWrite, string(errorCategory(err)))
				return err
			}
			c.written.Add(1)
			c.recorder.RecordOperation(opWrite, "success")
			c.recorder.RecordDuration(opWrite, time.Since(start).Seconds())
		}

		select {
		case <-c.wake:
		case <-stageDone:
			if c.ring.Length() < c.recordSize {
				return nil
			}
		case <-ctx.Done():
			if c.ring.Length() < c.recordSize {
				return nil
			}
		}
	}
}

func errorCategory(err error) errors.ErrorCategory {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return errors.ErrorCategory(ee.GetCategory())
	}
	return errors.CategoryGeneric
}
