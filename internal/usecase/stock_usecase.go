package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lvyanru/stockchat/internal/domain"
)

// symbolPattern matches a bare ticker symbol: 1-5 uppercase letters. The
// chat layer's $SYMBOL convention strips the prefix before reaching here.
var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

type stockUsecase struct {
	provider domain.QuoteProvider
	logger   *slog.Logger
}

// NewStockUsecase creates the stock series usecase.
func NewStockUsecase(provider domain.QuoteProvider, logger *slog.Logger) domain.StockUsecase {
	return &stockUsecase{
		provider: provider,
		logger:   logger,
	}
}

// Series validates the symbol and fetches its trailing daily closes. The
// provider payload is passed through untouched.
func (u *stockUsecase) Series(ctx context.Context, symbol string) ([]byte, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, domain.NewInvalidRequestError("stock symbol is required")
	}
	if !symbolPattern.MatchString(symbol) {
		return nil, domain.NewInvalidRequestError("invalid stock symbol: must be 1-5 letters")
	}

	payload, err := u.provider.DailySeries(ctx, symbol)
	if err != nil {
		u.logger.Error("failed to fetch stock series", "symbol", symbol, "error", err)
		return nil, err
	}

	u.logger.Debug("stock series fetched", "symbol", symbol, "bytes", len(payload))
	return payload, nil
}
