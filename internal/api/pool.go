package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/corrlab/corrbuf/internal/corrpool"
)

// PoolResponse describes the pool layout and its current counters.
type PoolResponse struct {
	Antennas               int            `json:"antennas"`
	Channels               int            `json:"channels"`
	Beams                  int            `json:"beams"`
	BufferSize             int            `json:"buffer_size"`
	SampleCount            int            `json:"sample_count"`
	DuplicateSecondAntenna bool           `json:"duplicate_second_antenna"`
	Stats                  corrpool.Stats `json:"stats"`
}

// BufferResponse describes one buffer.
type BufferResponse struct {
	ID     int              `json:"id"`
	Status string           `json:"status"`
	Header *corrpool.Header `json:"header,omitempty"`
}

// GetPool handles GET /api/v1/pool.
func (c *Controller) GetPool(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, PoolResponse{
		Antennas:               c.pool.Antennas(),
		Channels:               c.pool.Channels(),
		Beams:                  c.pool.Beams(),
		BufferSize:             c.pool.BufferSize(),
		SampleCount:            c.pool.SampleCount(),
		DuplicateSecondAntenna: c.pool.DuplicateSecondAntenna(),
		Stats:                  c.pool.Stats(),
	})
}

// GetBuffer handles GET /api/v1/pool/buffers/:id. The header is included
// for Ready and BeingProcessed buffers only; a buffer being filled belongs
// to its receiver.
func (c *Controller) GetBuffer(ctx echo.Context) error {
	n, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "buffer id must be an integer", http.StatusBadRequest)
	}
	if n < 0 || n >= c.pool.Capacity() {
		return c.HandleError(ctx, nil, "buffer id out of range", http.StatusNotFound)
	}

	status, h, ok := c.pool.Inspect(corrpool.BufferID(n))
	resp := BufferResponse{ID: n, Status: status.String()}
	if ok {
		resp.Header = &h
	}
	return ctx.JSON(http.StatusOK, resp)
}

// DuplicateRequest is the body of PUT /api/v1/pool/duplicate.
type DuplicateRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetDuplicate handles PUT /api/v1/pool/duplicate.
func (c *Controller) SetDuplicate(ctx echo.Context) error {
	var req DuplicateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Enabled == nil {
		return c.HandleError(ctx, nil, "enabled must be set", http.StatusBadRequest)
	}
	if err := c.pool.SetDuplicateSecondAntenna(*req.Enabled); err != nil {
		return c.HandleError(ctx, err, "cannot change antenna duplication", http.StatusConflict)
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"enabled": c.pool.DuplicateSecondAntenna()})
}
