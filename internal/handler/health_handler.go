package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/stockchat/internal/domain"
)

// HealthHandler exposes the liveness/readiness surface.
type HealthHandler struct {
	streamer domain.CompletionStreamer
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(streamer domain.CompletionStreamer) *HealthHandler {
	return &HealthHandler{streamer: streamer}
}

// Ping answers a basic reachability check.
func (h *HealthHandler) Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":  "ok",
		"message": "pong",
	})
}

// Liveness reports process liveness.
func (h *HealthHandler) Liveness(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "alive"})
}

// Readiness reports whether the relay can serve chat requests. A missing
// upstream credential keeps the process up but not ready.
func (h *HealthHandler) Readiness(ctx context.Context, c *app.RequestContext) {
	if !h.streamer.Configured() {
		c.JSON(consts.StatusServiceUnavailable, utils.H{
			"status":              "not ready",
			"upstream_configured": false,
		})
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"status":              "ready",
		"upstream_configured": true,
	})
}
