package handler

import (
	"context"
	"log/slog"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/stockchat/internal/domain"
)

// StockHandler proxies daily price series for a ticker symbol.
type StockHandler struct {
	usecase domain.StockUsecase
	logger  *slog.Logger
}

// NewStockHandler creates the stock handler.
func NewStockHandler(usecase domain.StockUsecase, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// Series handles GET /stock?symbol=X. The provider payload is returned
// verbatim so the rendering layer sees the provider's native shape.
func (h *StockHandler) Series(ctx context.Context, c *app.RequestContext) {
	symbol := c.Query("symbol")

	payload, err := h.usecase.Series(ctx, symbol)
	if err != nil {
		h.logger.Error("stock series request failed", "symbol", symbol, "error", err)
		ErrorResponse(c, err)
		return
	}

	c.Data(consts.StatusOK, "application/json", payload)
}
