package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/corrlab/corrbuf/internal/correlator"
)

const maxHistoryLimit = 1000

// GetLatest handles GET /api/v1/correlator/latest. With channel and beam
// query parameters it returns the newest result of that stream.
func (c *Controller) GetLatest(ctx echo.Context) error {
	if c.latest == nil {
		return c.HandleError(ctx, nil, "correlator is not running", http.StatusNotFound)
	}

	var (
		r  correlator.Result
		ok bool
	)
	chParam, beamParam := ctx.QueryParam("channel"), ctx.QueryParam("beam")
	if chParam == "" && beamParam == "" {
		r, ok = c.latest.Latest()
	} else {
		ch, err1 := strconv.Atoi(chParam)
		beam, err2 := strconv.Atoi(beamParam)
		if err1 != nil || err2 != nil {
			return c.HandleError(ctx, nil, "channel and beam must both be integers", http.StatusBadRequest)
		}
		r, ok = c.latest.For(ch, beam)
	}
	if !ok {
		return c.HandleError(ctx, nil, "no result yet", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, r)
}

// GetHistory handles GET /api/v1/correlator/history?limit=n.
func (c *Controller) GetHistory(ctx echo.Context) error {
	if c.history == nil {
		return c.HandleError(ctx, nil, "datastore is disabled", http.StatusNotFound)
	}
	limit := 50
	if s := ctx.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.HandleError(ctx, err, "limit must be a positive integer", http.StatusBadRequest)
		}
		limit = min(n, maxHistoryLimit)
	}
	results, err := c.history.Recent(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to read history", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, results)
}

// GetReceivers handles GET /api/v1/receivers.
func (c *Controller) GetReceivers(ctx echo.Context) error {
	if c.receivers == nil {
		return c.HandleError(ctx, nil, "receivers are not running", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, c.receivers.Stats())
}
