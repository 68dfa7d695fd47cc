package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/corrlab/corrbuf/internal/api"
	"github.com/corrlab/corrbuf/internal/correlator"
	"github.com/corrlab/corrbuf/internal/datastore"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/mqtt"
	"github.com/corrlab/corrbuf/internal/telemetry"
)

const telemetryFlushTimeout = 2 * time.Second

func runCommand(ctx *Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run receivers, the correlator and the status API",
		Long:  "Fill the buffer pool from the configured receivers and correlate every complete antenna set until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPipeline(sigCtx, ctx)
		},
	}

	cmd.Flags().String("mode", "", "Receiver mode (udp or simulate)")
	cmd.Flags().StringSlice("listen", nil, "UDP listen addresses, one receiver each")
	cmd.Flags().String("http", "", "Status API listen address")
	bindFlag(cmd, "receivers.mode", "mode")
	bindFlag(cmd, "receivers.udp.listen", "listen")
	bindFlag(cmd, "webserver.listen", "http")

	return cmd
}

// runPipeline runs every enabled component until ctx ends or one fails.
func runPipeline(ctx context.Context, app *Context) error {
	settings := app.Settings
	log := GetLogger()

	if err := telemetry.Init(&settings.Sentry, app.Build.Version(), nil); err != nil {
		return err
	}
	defer telemetry.Flush(telemetryFlushTimeout)

	p, err := buildPipeline(settings)
	if err != nil {
		return err
	}

	latest := correlator.NewLatestStore()
	sinks := []correlator.Sink{latest}
	if settings.Correlator.LogEvery > 0 {
		sinks = append(sinks, &correlator.LogSink{Log: correlator.GetLogger(), Every: settings.Correlator.LogEvery})
	}

	if settings.MQTT.Enabled {
		mcfg := mqtt.ConfigFromSettings(&settings.MQTT)
		mcfg.ClientID += "-" + app.Build.ShortID()
		client := mqtt.NewClient(mcfg, p.metrics.MQTT)
		if err := client.Connect(ctx); err != nil {
			return err
		}
		defer client.Disconnect()
		sinks = append(sinks, mqtt.NewPublisher(client, mcfg.Topic))
	}

	var store *datastore.Store
	if settings.Datastore.Enabled {
		store, err = datastore.Open(&settings.Datastore, p.metrics.Datastore)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("failed to close datastore", logger.Error(err))
			}
		}()
		sinks = append(sinks, store)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.receivers.Run(gctx) })

	if settings.Correlator.Enabled {
		corr := correlator.New(p.pool, correlator.Options{
			Sinks:    sinks,
			Recorder: p.metrics.Correlator,
		})
		g.Go(func() error { return corr.Run(gctx) })
	} else {
		log.Warn("correlator disabled, ready buffers are only released by supersession")
	}

	if store != nil {
		g.Go(func() error {
			store.RunRetention(gctx, settings.Datastore.Retention, 0)
			return nil
		})
	}

	if settings.WebServer.Enabled {
		opts := api.Options{
			Pool:      p.pool,
			Latest:    latest,
			Receivers: p.receivers,
			Metrics:   p.metrics.Handler(),
		}
		if store != nil {
			opts.History = store
		}
		server := api.New(opts)
		g.Go(func() error { return server.Start(gctx, settings.WebServer.Listen) })
	}

	log.Info("pipeline running",
		logger.String("receivers", settings.Receivers.Mode),
		logger.Int("sinks", len(sinks)))
	err = g.Wait()

	stats := p.pool.Stats()
	log.Info("pipeline stopped",
		logger.Uint64("acquired", stats.Acquired),
		logger.Uint64("overflows", stats.Overflows))
	return err
}
