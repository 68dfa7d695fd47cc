// Package api serves the read-only status API and the metrics endpoint.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/corrlab/corrbuf/internal/correlator"
	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
	"github.com/corrlab/corrbuf/internal/receiver"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// systemInfoTTL is how long a host resource snapshot is reused.
const systemInfoTTL = 5 * time.Second

// Pool is the part of corrpool.Pool the API reads.
type Pool interface {
	Stats() corrpool.Stats
	Inspect(id corrpool.BufferID) (corrpool.BufferStatus, corrpool.Header, bool)
	Capacity() int
	Antennas() int
	Channels() int
	Beams() int
	BufferSize() int
	SampleCount() int
	DuplicateSecondAntenna() bool
	SetDuplicateSecondAntenna(on bool) error
}

// LatestSource serves the newest correlation results.
type LatestSource interface {
	Latest() (correlator.Result, bool)
	For(channel, beam int) (correlator.Result, bool)
}

// HistorySource serves archived correlation results.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]correlator.Result, error)
}

// ReceiverStats reports per-stream filler counters.
type ReceiverStats interface {
	Stats() []receiver.FillerStats
}

// Options wires the controller to the running pipeline. Only Pool is
// required; routes backed by a nil source answer 404.
type Options struct {
	Pool      Pool
	Latest    LatestSource
	History   HistorySource
	Receivers ReceiverStats
	Metrics   http.Handler
	Logger    logger.Logger
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	pool      Pool
	latest    LatestSource
	history   HistorySource
	receivers ReceiverStats
	metrics   http.Handler
	log       logger.Logger
	sysCache  *cache.Cache
	startTime time.Time
}

// New creates the echo instance and registers every route.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = GetLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	c := &Controller{
		Echo:      e,
		pool:      opts.Pool,
		latest:    opts.Latest,
		history:   opts.History,
		receivers: opts.Receivers,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		// No janitor goroutine: there is a single key that Set overwrites.
		sysCache:  cache.New(systemInfoTTL, 0),
		startTime: time.Now(),
	}

	c.Group = e.Group("/api/v1")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.BodyLimit("64K"))
	c.Group.Use(c.LoggingMiddleware())
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/pool", c.GetPool)
	c.Group.GET("/pool/buffers/:id", c.GetBuffer)
	c.Group.PUT("/pool/duplicate", c.SetDuplicate)
	c.Group.GET("/correlator/latest", c.GetLatest)
	c.Group.GET("/correlator/history", c.GetHistory)
	c.Group.GET("/receivers", c.GetReceivers)
	c.Group.GET("/system", c.GetSystemInfo)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics))
	}
}

// Start serves on addr until ctx ends, then shuts down gracefully.
func (c *Controller) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		c.log.Info("status API listening", logger.String("addr", addr))
		if err := c.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "listen").
			Context("addr", addr).
			Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := c.Echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	// Drain the server goroutine.
	for range errCh {
	}
	return nil
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs err and replies with an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.log.Warn("API error",
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.String("error", resp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()))
	return ctx.JSON(code, resp)
}

// LoggingMiddleware logs each request at debug level.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			c.log.Debug("request handled",
				logger.String("method", ctx.Request().Method),
				logger.String("path", ctx.Path()),
				logger.Int("status", ctx.Response().Status),
				logger.Duration("duration", time.Since(start)))
			return err
		}
	}
}

// HealthCheck reports liveness and uptime.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(c.startTime).Round(time.Second).String(),
	})
}
