package receiver

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability/metrics"
)

// DefaultDropLogInterval limits overflow warnings per stream.
const DefaultDropLogInterval = 10 * time.Second

// Group runs one Filler per source.
type Group struct {
	fillers []*Filler
	sources []Source
	log     logger.Logger
}

// NewGroup creates fillers for sources. Overflow warnings are logged at
// most once per dropLogInterval for each source.
func NewGroup(pool Pool, sources []Source, dropLogInterval time.Duration, log logger.Logger, recorder metrics.Recorder) *Group {
	if log == nil {
		log = GetLogger()
	}
	if dropLogInterval <= 0 {
		dropLogInterval = DefaultDropLogInterval
	}
	// No janitor: expired entries are replaced by Add, and there is one key
	// per source.
	dropLog := cache.New(dropLogInterval, 0)

	g := &Group{sources: sources, log: log}
	for _, src := range sources {
		g.fillers = append(g.fillers, NewFiller(pool, src, log, recorder, dropLog))
	}
	return g
}

// Run starts every filler and waits for all of them. The first source
// failure cancels the others. Sources are closed before Run returns.
func (g *Group) Run(ctx context.Context) error {
	defer g.close()

	g.log.Info("starting receivers", logger.Int("sources", len(g.fillers)))
	eg, ctx := errgroup.WithContext(ctx)
	for _, f := range g.fillers {
		eg.Go(func() error { return f.Run(ctx) })
	}
	err := eg.Wait()
	if err != nil {
		g.log.Error("receiver failed", logger.Error(err))
	}
	return err
}

func (g *Group) close() {
	for _, src := range g.sources {
		if err := src.Close(); err != nil {
			g.log.Warn("failed to close source", logger.String("source", src.Name()), logger.Error(err))
		}
	}
}

// Stats returns the counters of every filler.
func (g *Group) Stats() []FillerStats {
	out := make([]FillerStats, len(g.fillers))
	for i, f := range g.fillers {
		out[i] = f.Stats()
	}
	return out
}

// SourcesFromSettings builds the sources selected by settings for a pool
// of the given dimensions. Simulated mode yields one stream per antenna,
// channel and beam; antenna 2 is left out when the pool mirrors antenna 1
// into it.
func SourcesFromSettings(s *conf.ReceiverSettings, pool *corrpool.Pool) ([]Source, error) {
	switch s.Mode {
	case conf.ReceiverModeSimulate:
		var sources []Source
		for a := range pool.Antennas() {
			if a == 2 && pool.DuplicateSecondAntenna() {
				continue
			}
			for c := range pool.Channels() {
				for b := range pool.Beams() {
					sources = append(sources, NewSimSource(SimConfig{
						Key:   corrpool.Key{Antenna: a, Channel: c, Beam: b},
						Rate:  s.Simulate.Rate,
						Tone:  s.Simulate.Tone,
						Noise: s.Simulate.Noise,
					}))
				}
			}
		}
		return sources, nil

	case conf.ReceiverModeUDP:
		opts := UDPOptions{
			MulticastGroup: s.UDP.MulticastGroup,
			Interface:      s.UDP.Interface,
			ReadBuffer:     s.UDP.ReadBuffer,
		}
		sources := make([]Source, 0, len(s.UDP.Listen))
		for _, addr := range s.UDP.Listen {
			src, err := ListenUDP(addr, pool.BufferSize(), opts)
			if err != nil {
				for _, opened := range sources {
					opened.Close()
				}
				return nil, err
			}
			sources = append(sources, src)
		}
		return sources, nil

	default:
		return nil, errors.Newf("unknown receiver mode %q", s.Mode).
			Component("receiver").
			Category(errors.CategoryConfiguration).
			Context("mode", s.Mode).
			Build()
	}
}
