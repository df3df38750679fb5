package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/lvyanru/stockchat/internal/handler"
	"github.com/lvyanru/stockchat/internal/middleware"
)

// Setup sets up all routes
func Setup(
	h *server.Hertz,
	chatHandler *handler.ChatHandler,
	stockHandler *handler.StockHandler,
	healthHandler *handler.HealthHandler,
) {
	// Global middleware
	h.Use(middleware.Recovery())
	h.Use(middleware.Logger())
	h.Use(middleware.CORS())

	// Health check routes
	h.GET("/ping", healthHandler.Ping)
	h.GET("/health/ready", healthHandler.Readiness)
	h.GET("/health/live", healthHandler.Liveness)

	// Relay surface
	h.POST("/chat", chatHandler.Chat)
	h.GET("/stock", stockHandler.Series)
}
