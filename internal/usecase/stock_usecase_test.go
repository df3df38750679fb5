package usecase

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/lvyanru/stockchat/internal/domain"
)

// Mock QuoteProvider recording the normalized symbol it receives
type testQuoteProvider struct {
	gotSymbol string
	payload   []byte
	err       error
}

func (p *testQuoteProvider) DailySeries(ctx context.Context, symbol string) ([]byte, error) {
	p.gotSymbol = symbol
	return p.payload, p.err
}

func TestSeriesSymbolValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name       string
		symbol     string
		wantSymbol string // what should reach the provider; empty means rejected
	}{
		{name: "plain symbol", symbol: "AAPL", wantSymbol: "AAPL"},
		{name: "lowercase normalized", symbol: "tsla", wantSymbol: "TSLA"},
		{name: "whitespace trimmed", symbol: "  MSFT ", wantSymbol: "MSFT"},
		{name: "single letter", symbol: "F", wantSymbol: "F"},
		{name: "five letters", symbol: "GOOGL", wantSymbol: "GOOGL"},
		{name: "empty", symbol: ""},
		{name: "whitespace only", symbol: "   "},
		{name: "too long", symbol: "TOOLONG"},
		{name: "digits", symbol: "AB12"},
		{name: "dollar prefix not accepted here", symbol: "$AAPL"},
		{name: "path injection", symbol: "AAPL/extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &testQuoteProvider{payload: []byte(`{"chart":{}}`)}
			uc := NewStockUsecase(provider, logger)

			payload, err := uc.Series(context.Background(), tt.symbol)

			if tt.wantSymbol == "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !domain.IsInvalidRequest(err) {
					t.Errorf("error = %v, want invalid request", err)
				}
				if provider.gotSymbol != "" {
					t.Errorf("provider called with %q for invalid input", provider.gotSymbol)
				}
				return
			}

			if err != nil {
				t.Fatalf("Series() error = %v", err)
			}
			if provider.gotSymbol != tt.wantSymbol {
				t.Errorf("provider got %q, want %q", provider.gotSymbol, tt.wantSymbol)
			}
			if string(payload) != `{"chart":{}}` {
				t.Errorf("payload = %q, want provider bytes passed through untouched", payload)
			}
		})
	}
}

func TestSeriesProviderErrorPassthrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	provider := &testQuoteProvider{err: domain.NewUpstreamError("quote service returned 502")}
	uc := NewStockUsecase(provider, logger)

	_, err := uc.Series(context.Background(), "AAPL")
	if !domain.IsUpstream(err) {
		t.Errorf("error = %v, want upstream error surfaced as-is", err)
	}
}
