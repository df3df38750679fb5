package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/stockchat/internal/cli/types"
	"github.com/lvyanru/stockchat/pkg/sse"
)

// APIClient wraps a Hertz client for HTTP communication with the relay
// server.
type APIClient struct {
	client *client.Client
	server string
}

// NewAPIClient creates a new API client
func NewAPIClient(server string) (*APIClient, error) {
	normalizedServer, err := normalizeServerURL(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	// Standard library dialer: netpoll doesn't support streaming response
	// bodies.
	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &APIClient{
		client: c,
		server: normalizedServer,
	}, nil
}

// normalizeServerURL ensures the server address has a scheme and no
// trailing slash.
func normalizeServerURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL")
	}

	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// ChatStream sends the transcript to the relay and returns the decoded
// event channel. The channel closes when the stream ends; closure without
// a Done event is an implicit end. Cancelling ctx aborts the request and
// tears down the server-side connection.
func (c *APIClient) ChatStream(ctx context.Context, messages []types.ChatMessage) (<-chan types.StreamEvent, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("chat request requires at least one message")
	}

	// Copy to avoid data races if the caller mutates the slice mid-stream
	safeMessages := make([]types.ChatMessage, len(messages))
	copy(safeMessages, messages)

	bodyBytes, err := sonic.Marshal(types.ChatRequest{Messages: safeMessages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.server + endpointChat)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set("Accept", "text/event-stream")
	req.SetBody(bodyBytes)

	if err := c.client.Do(ctx, req, resp); err != nil {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != consts.StatusOK {
		err := decodeErrorResponse(resp)
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, err
	}

	bodyStream := resp.BodyStream()
	if bodyStream == nil {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, fmt.Errorf("body stream is nil")
	}

	events := make(chan types.StreamEvent, 10)

	go func() {
		defer func() {
			close(events)
			protocol.ReleaseRequest(req)
			protocol.ReleaseResponse(resp)
		}()

		send := func(ev types.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanErr := sse.ScanData(bodyStream, func(payload string) bool {
			if payload == sse.Sentinel {
				send(types.StreamEvent{Done: true})
				return false
			}

			var frame types.StreamFrame
			if err := sonic.UnmarshalString(payload, &frame); err != nil {
				// A malformed frame never aborts the stream
				return true
			}
			if frame.Error != "" {
				send(types.StreamEvent{Err: frame.Error})
				return false
			}
			if frame.Content != "" {
				return send(types.StreamEvent{Text: frame.Content})
			}
			return true
		})
		if scanErr != nil && ctx.Err() == nil {
			send(types.StreamEvent{Err: fmt.Sprintf("stream read failed: %v", scanErr)})
		}
	}()

	return events, nil
}

// StockSeries fetches the daily price series for a symbol and flattens it
// for the chart renderer.
func (c *APIClient) StockSeries(ctx context.Context, symbol string) (*types.StockSeries, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(fmt.Sprintf("%s%s?symbol=%s", c.server, endpointStock, url.QueryEscape(symbol)))

	if err := c.client.Do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body := readBody(resp)
	if resp.StatusCode() != consts.StatusOK {
		var errResp types.ErrorResponse
		if err := sonic.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("stock request failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("stock request failed with HTTP status: %d", resp.StatusCode())
	}

	var chart types.ChartResponse
	if err := sonic.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chart payload: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("quote provider error: %s", chart.Chart.Error.Description)
	}

	series := chart.Series()
	if series == nil {
		return nil, fmt.Errorf("no price data for %s", symbol)
	}
	return series, nil
}

// decodeErrorResponse turns a non-200 reply into an error, surfacing the
// rate-limit reset time when present.
func decodeErrorResponse(resp *protocol.Response) error {
	body := readBody(resp)

	var errResp types.ErrorResponse
	if err := sonic.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if resp.StatusCode() == consts.StatusTooManyRequests && errResp.ResetTime != "" {
			return fmt.Errorf("%s (retry after %s)", errResp.Error, errResp.ResetTime)
		}
		return fmt.Errorf("%s", errResp.Error)
	}

	return fmt.Errorf("chat failed with HTTP status: %d", resp.StatusCode())
}

// readBody drains the response whether or not body streaming kicked in.
func readBody(resp *protocol.Response) []byte {
	if stream := resp.BodyStream(); stream != nil {
		var buf []byte
		chunk := make([]byte, 4096)
		for {
			n, err := stream.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if err != nil {
				return buf
			}
		}
	}
	return resp.Body()
}
