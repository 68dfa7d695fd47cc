package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/corrlab/corrbuf/internal/capture"
	"github.com/corrlab/corrbuf/internal/logger"
)

func captureCommand(ctx *Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Write every ready buffer to WAV files",
		Long:  "Fill the buffer pool from the configured receivers and write each buffer, one at a time, to a WAV file per antenna, channel and beam.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCapture(sigCtx, ctx)
		},
	}

	cmd.Flags().String("dir", "", "Output directory for WAV files")
	cmd.Flags().Int("records", 0, "Stop after this many records (0 runs until interrupted)")
	bindFlag(cmd, "capture.path", "dir")
	bindFlag(cmd, "capture.maxrecords", "records")

	return cmd
}

// runCapture feeds the capture consumer until it reaches its record limit
// or ctx ends. Receivers stop when capture does.
func runCapture(ctx context.Context, app *Context) error {
	p, err := buildPipeline(app.Settings)
	if err != nil {
		return err
	}

	opts := capture.OptionsFromSettings(&app.Settings.Capture)
	opts.Recorder = p.metrics.Capture
	c, err := capture.New(p.pool, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var summary capture.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.receivers.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		var err error
		summary, err = c.Run(gctx)
		return err
	})
	err = g.Wait()

	GetLogger().Info("capture session complete",
		logger.String("session", summary.Session),
		logger.Uint64("written", summary.Written),
		logger.Uint64("dropped", summary.Dropped),
		logger.Int("files", len(summary.Files)))
	for _, f := range summary.Files {
		GetLogger().Debug("capture file", logger.String("path", f))
	}
	return err
}
