package receiver

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/corrlab/corrbuf/internal/corrpool"
)

// SimConfig describes one synthetic stream.
type SimConfig struct {
	Key   corrpool.Key
	Rate  float64 // records per second, 0 or less is unpaced
	Tone  float64 // cycles per sample
	Noise float64 // uniform noise amplitude added to I and Q
}

// SimSource synthesizes a complex tone. Every antenna sees the same tone
// with a fixed phase offset of a quarter turn per antenna index, so the
// correlator output is predictable.
type SimSource struct {
	cfg     SimConfig
	limiter *rate.Limiter
	rng     *rand.Rand
	seq     uint64
}

// NewSimSource creates a synthetic source for cfg.Key.
func NewSimSource(cfg SimConfig) *SimSource {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &SimSource{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		rng:     rand.New(rand.NewPCG(uint64(cfg.Key.Antenna), uint64(cfg.Key.Channel)<<16|uint64(cfg.Key.Beam))),
	}
}

// Name implements Source.
func (s *SimSource) Name() string {
	return fmt.Sprintf("sim/a%d/c%d/b%d", s.cfg.Key.Antenna, s.cfg.Key.Channel, s.cfg.Key.Beam)
}

// Fill implements Source.
func (s *SimSource) Fill(ctx context.Context, p Pool, id corrpool.BufferID) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	samples := p.Samples(id)
	p.SetHeader(id, corrpool.Header{
		Antenna:     uint16(s.cfg.Key.Antenna),
		Channel:     uint16(s.cfg.Key.Channel),
		Beam:        uint16(s.cfg.Key.Beam),
		SampleCount: uint32(len(samples)),
		Sequence:    s.seq,
		Timestamp:   time.Now().UnixNano(),
	})
	s.synthesize(samples)
	s.seq++
	return nil
}

// Drop implements Source. The record slot is spent so pacing and sequence
// numbers stay the same as if it had been stored.
func (s *SimSource) Drop(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	s.seq++
	return nil
}

// Close implements Source.
func (s *SimSource) Close() error { return nil }

func (s *SimSource) synthesize(dst []complex64) {
	n := len(dst)
	offset := float64(s.cfg.Key.Antenna) * math.Pi / 2
	start := float64(s.seq) * float64(n)
	for i := range dst {
		phase := 2*math.Pi*s.cfg.Tone*(start+float64(i)) + offset
		re, im := math.Cos(phase), math.Sin(phase)
		if s.cfg.Noise > 0 {
			re += s.cfg.Noise * (2*s.rng.Float64() - 1)
			im += s.cfg.Noise * (2*s.rng.Float64() - 1)
		}
		dst[i] = complex(float32(re), float32(im))
	}
}
