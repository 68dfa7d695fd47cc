package cmd

import (
	"github.com/labstack/gommon/bytes"

	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/observability"
	"github.com/corrlab/corrbuf/internal/receiver"
)

// pipeline is the pool with its fillers, shared by run and capture.
type pipeline struct {
	metrics   *observability.Metrics
	pool      *corrpool.Pool
	receivers *receiver.Group
}

// buildPipeline checks the memory budget, allocates the pool and opens
// the configured sources.
func buildPipeline(settings *conf.Settings) (*pipeline, error) {
	log := GetLogger()

	budget, err := conf.CheckMemoryBudget(&settings.Pool)
	if err != nil {
		return nil, err
	}
	log.Info("buffer pool sizing",
		logger.Int("capacity", settings.Pool.Capacity()),
		logger.Int("buffer_size", settings.Pool.BufferSize()),
		logger.String("footprint", bytes.Format(int64(budget.Footprint))),
		logger.Float64("percent_of_host", budget.Percent))

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component("main").
			Category(errors.CategorySystem).
			Context("operation", "create_metrics").
			Build()
	}

	cfg := settings.Pool.PoolConfig()
	cfg.Recorder = m.Pool
	pool, err := corrpool.New(cfg)
	if err != nil {
		return nil, err
	}
	m.Pool.Attach(pool)

	sources, err := receiver.SourcesFromSettings(&settings.Receivers, pool)
	if err != nil {
		return nil, err
	}
	group := receiver.NewGroup(pool, sources, settings.Receivers.DropLogInterval, nil, m.Receiver)

	return &pipeline{metrics: m, pool: pool, receivers: group}, nil
}
