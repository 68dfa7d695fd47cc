package correlator

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/corrlab/corrbuf/internal/logger"
)

// LogSink logs one result in every Every.
type LogSink struct {
	Log   logger.Logger
	Every int

	n atomic.Uint64
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Consume(_ context.Context, r Result) error {
	if s.Every <= 0 {
		return nil
	}
	if (s.n.Add(1)-1)%uint64(s.Every) != 0 {
		return nil
	}
	fields := []logger.Field{
		logger.Int("channel", r.Channel),
		logger.Int("beam", r.Beam),
		logger.Uint64("sequence", r.Sequence),
		logger.Int("samples", r.Samples),
	}
	for _, p := range r.Pairs {
		fields = append(fields, logger.Float64(baselineKey(p), p.Magnitude))
	}
	s.Log.Info("correlation result", fields...)
	return nil
}

func baselineKey(p Baseline) string {
	return "baseline_" + strconv.Itoa(p.A) + "_" + strconv.Itoa(p.B)
}

// key identifies one (channel, beam) stream of results.
type key struct{ channel, beam int }

// LatestStore keeps the most recent result overall and per channel and beam.
type LatestStore struct {
	mu     sync.RWMutex
	latest *Result
	byKey  map[key]Result
}

// NewLatestStore returns an empty store.
func NewLatestStore() *LatestStore {
	return &LatestStore{byKey: make(map[key]Result)}
}

func (s *LatestStore) Name() string { return "latest" }

func (s *LatestStore) Consume(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &r
	s.byKey[key{r.Channel, r.Beam}] = r
	return nil
}

// Latest returns the newest result, if any.
func (s *LatestStore) Latest() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Result{}, false
	}
	return *s.latest, true
}

// For returns the newest result for one channel and beam.
func (s *LatestStore) For(channel, beam int) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byKey[key{channel, beam}]
	return r, ok
}
