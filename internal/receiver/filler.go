package receiver

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

// Operation names reported to the metrics recorder.
const (
	opFill = "fill"
	opDrop = "drop"
)

// Outcome labels reported with opFill.
const (
	statusPublished = "published"
	statusSkipped   = "skipped"
	statusError     = "error"
)

// FillerStats counts what happened to the records of one stream.
type FillerStats struct {
	Source    string `json:"source"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Skipped   uint64 `json:"skipped"`
}

// Filler moves records from one Source into the pool.
type Filler struct {
	pool     Pool
	src      Source
	log      logger.Logger
	recorder metrics.Recorder
	dropLog  *cache.Cache

	published atomic.Uint64
	dropped   atomic.Uint64
	skipped   atomic.Uint64
}

// NewFiller creates a filler for src. dropLog rate-limits the overflow
// warning per source name; a nil dropLog logs every drop at debug level.
func NewFiller(pool Pool, src Source, log logger.Logger, recorder metrics.Recorder, dropLog *cache.Cache) *Filler {
	if log == nil {
		log = GetLogger()
	}
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	return &Filler{
		pool:     pool,
		src:      src,
		log:      log.With(logger.String("source", src.Name())),
		recorder: recorder,
		dropLog:  dropLog,
	}
}

// Run fills buffers until ctx is cancelled or the source fails. A
// cancelled context is a clean stop and returns nil.
func (f *Filler) Run(ctx context.Context) error {
	f.log.Debug("filler started")
	defer f.log.Debug("filler stopped", logger.Uint64("published", f.published.Load()), logger.Uint64("dropped", f.dropped.Load()))

	for ctx.Err() == nil {
		if err := f.step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

func (f *Filler) step(ctx context.Context) error {
	id, ok := f.pool.AcquireForFill()
	if !ok {
		if err := f.src.Drop(ctx); err != nil {
			return f.wrap(err, "drop")
		}
		f.dropped.Add(1)
		f.recorder.RecordOperation(opDrop, "overflow")
		f.logDrop()
		return nil
	}

	start := time.Now()
	err := f.src.Fill(ctx, f.pool, id)
	switch {
	case err == nil:
		f.pool.Publish(id)
		f.published.Add(1)
		f.recorder.RecordOperation(opFill, statusPublished)
		f.recorder.RecordDuration(opFill, time.Since(start).Seconds())
		return nil
	case errors.Is(err, ErrSkipRecord):
		f.pool.Discard(id)
		f.skipped.Add(1)
		f.recorder.RecordOperation(opFill, statusSkipped)
		f.log.Debug("record skipped", logger.Error(err))
		return nil
	default:
		f.pool.Discard(id)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.recorder.RecordOperation(opFill, statusError)
		f.recorder.RecordError(opFill, "source")
		return f.wrap(err, "fill")
	}
}

func (f *Filler) logDrop() {
	if f.dropLog == nil {
		f.log.Debug("pool exhausted, record dropped")
		return
	}
	// Add fails while an unexpired entry exists, which suppresses repeats.
	if err := f.dropLog.Add(f.src.Name(), struct{}{}, cache.DefaultExpiration); err != nil {
		return
	}
	f.log.Warn("pool exhausted, dropping records",
		logger.Uint64("dropped_total", f.dropped.Load()))
}

func (f *Filler) wrap(err error, operation string) error {
	return errors.New(err).
		Component("receiver").
		Category(errors.CategoryReceiver).
		Context("operation", operation).
		Context("source", f.src.Name()).
		Build()
}

// Stats returns the counters of this filler.
func (f *Filler) Stats() FillerStats {
	return FillerStats{
		Source:    f.src.Name(),
		Published: f.published.Load(),
		Dropped:   f.dropped.Load(),
		Skipped:   f.skipped.Load(),
	}
}
