// Package finance fetches daily closing price series from a Yahoo-style
// chart API. The payload is proxied verbatim; only this package knows the
// provider's URL shape.
package finance

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/stockchat/internal/config"
	"github.com/lvyanru/stockchat/internal/domain"
)

// Some public finance endpoints reject requests without a browser agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Client implements domain.QuoteProvider.
type Client struct {
	httpc      *client.Client
	baseURL    string
	windowDays int
	logger     *slog.Logger

	now func() time.Time // stubbed in tests
}

// NewClient builds the quote client.
func NewClient(cfg config.StockConfig, logger *slog.Logger) (*Client, error) {
	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create finance HTTP client: %w", err)
	}

	return &Client{
		httpc:      c,
		baseURL:    cfg.BaseURL,
		windowDays: cfg.WindowDays,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// DailySeries returns the provider's chart payload for the trailing window
// at daily granularity, verbatim.
func (c *Client) DailySeries(ctx context.Context, symbol string) ([]byte, error) {
	end := c.now().Unix()
	start := end - int64(c.windowDays)*24*60*60

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		c.baseURL, symbol, start, end))
	req.Header.Set("User-Agent", browserUserAgent)

	if err := c.httpc.Do(ctx, req, resp); err != nil {
		return nil, domain.NewUpstreamError(fmt.Sprintf("quote request failed: %v", err))
	}

	if resp.StatusCode() != consts.StatusOK {
		c.logger.Warn("quote provider returned error status",
			"symbol", symbol,
			"status", resp.StatusCode(),
		)
		return nil, domain.NewUpstreamError(fmt.Sprintf("quote provider returned status %d", resp.StatusCode()))
	}

	// Copy out: the response buffer is recycled on release.
	body := resp.Body()
	payload := make([]byte, len(body))
	copy(payload, body)
	return payload, nil
}
