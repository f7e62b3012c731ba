package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldsync-backend/internal/inspection"
	"fieldsync-backend/internal/syncer"
)

// RefreshSync handles POST /api/sync/refresh. With ?wait=true the cycle runs
// inline and its result is returned; otherwise a refresh is only requested.
func (h *Handler) RefreshSync(c *gin.Context) {
	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		h.worker.Request()
		c.JSON(http.StatusAccepted, gin.H{"status": "requested"})
		return
	}

	res := h.worker.RunNow(c.Request.Context())
	if res.Skipped {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

type syncStatusResponse struct {
	InFlight bool              `json:"inFlight"`
	Source   string            `json:"source"`
	Last     *syncer.Result    `json:"last"`
	Counts   inspection.Counts `json:"counts"`
}

// SyncStatus handles GET /api/sync/status.
func (h *Handler) SyncStatus(c *gin.Context) {
	resp := syncStatusResponse{
		InFlight: h.controller.InFlight(),
		Source:   syncer.SourceLocal,
		Counts:   h.inspection.Counts(c.Request.Context()),
	}
	if last, ok := h.worker.Last(); ok {
		resp.Last = &last
		resp.Source = last.Source
	}
	c.JSON(http.StatusOK, resp)
}

// SyncStats handles GET /api/sync/stats. Falls back to the stats of the last
// refresh when the remote cannot be reached.
func (h *Handler) SyncStats(c *gin.Context) {
	if stats := h.remote.PullStats(c.Request.Context()); stats != nil {
		c.JSON(http.StatusOK, stats)
		return
	}
	if last, ok := h.worker.Last(); ok && last.Stats != nil {
		c.JSON(http.StatusOK, last.Stats)
		return
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
}

// PingRemote handles GET /api/sync/ping.
func (h *Handler) PingRemote(c *gin.Context) {
	ack := h.remote.Ping(c.Request.Context())
	status := http.StatusOK
	if !ack.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, ack)
}
