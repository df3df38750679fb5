// Package groq implements the upstream stream reader against a
// Groq/OpenAI-compatible chat completion endpoint.
package groq

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/stockchat/internal/config"
	"github.com/lvyanru/stockchat/internal/domain"
	"github.com/lvyanru/stockchat/internal/domain/entity"
	"github.com/lvyanru/stockchat/pkg/sse"
)

// KnownModels is the fallback catalog surfaced when the configured model
// has been decommissioned upstream.
var KnownModels = []string{
	"meta-llama/llama-4-scout-17b-16e-instruct",
	"mixtral-8x7b-32768",
	"gemma-7b-it",
}

const eventBufferSize = 64

// Client streams chat completions from the provider and re-frames its SSE
// wire format as entity.StreamEvents.
type Client struct {
	httpc   *client.Client
	baseURL string
	apiKey  string
	model   string
	temp    float64
	maxTok  int
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient builds the upstream client. The dialer is the standard library
// one: netpoll does not support streaming response bodies.
func NewClient(cfg config.UpstreamConfig, logger *slog.Logger) (*Client, error) {
	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream HTTP client: %w", err)
	}

	return &Client{
		httpc:   c,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		maxTok:  cfg.MaxTokens,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Configured implements domain.CompletionStreamer.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// completionRequest is the provider's request body.
type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Stream      bool                `json:"stream"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionChunk is one streamed chunk of the provider's SSE payload.
// Only the first choice's delta content is consumed.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// errorEnvelope is the provider's non-streamed error body.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// StreamCompletion implements domain.CompletionStreamer.
func (c *Client) StreamCompletion(ctx context.Context, messages []entity.ChatMessage) (<-chan entity.StreamEvent, error) {
	if !c.Configured() {
		return nil, domain.NewMisconfiguredError("upstream API key is not configured")
	}

	body := completionRequest{
		Model:       c.model,
		Messages:    make([]completionMessage, 0, len(messages)),
		Stream:      true,
		Temperature: c.temp,
		MaxTokens:   c.maxTok,
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, completionMessage{Role: m.Role, Content: m.Content})
	}

	bodyBytes, err := sonic.Marshal(body)
	if err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("failed to marshal completion request: %w", err))
	}

	// The timeout bounds the whole stream, not a single read. Cancellation
	// from the caller propagates through ctx and severs the connection.
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.baseURL + "/chat/completions")
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")
	req.SetBody(bodyBytes)

	release := func() {
		cancel()
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}

	if err = c.httpc.Do(ctx, req, resp); err != nil {
		release()
		return nil, domain.NewUpstreamError(fmt.Sprintf("completion request failed: %v", err))
	}

	if resp.StatusCode() != consts.StatusOK {
		defer release()
		return nil, c.classifyErrorResponse(resp)
	}

	bodyStream := resp.BodyStream()
	if bodyStream == nil {
		release()
		return nil, domain.NewUpstreamError("upstream returned no response body")
	}

	events := make(chan entity.StreamEvent, eventBufferSize)
	go func() {
		defer func() {
			close(events)
			release()
		}()
		c.decode(ctx, bodyStream, events)
	}()

	return events, nil
}

// classifyErrorResponse turns a non-2xx upstream response into a domain
// error, special-casing a decommissioned model.
func (c *Client) classifyErrorResponse(resp *protocol.Response) error {
	raw, err := io.ReadAll(resp.BodyStream())
	if err != nil {
		return domain.NewUpstreamError(fmt.Sprintf("upstream returned status %d", resp.StatusCode()))
	}

	var envelope errorEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil || envelope.Error.Message == "" {
		return domain.NewUpstreamError(fmt.Sprintf("upstream returned status %d", resp.StatusCode()))
	}

	if strings.Contains(envelope.Error.Message, "decommissioned") {
		return &domain.ModelUnavailableError{AvailableModels: KnownModels}
	}

	return domain.NewUpstreamError(envelope.Error.Message)
}

// decode reads the provider's SSE byte stream and emits normalized events.
// A malformed data line is logged and skipped; it never aborts the stream.
// If the stream ends without the sentinel no Done event is emitted, which
// consumers treat as an implicit end.
func (c *Client) decode(ctx context.Context, r io.Reader, events chan<- entity.StreamEvent) {
	send := func(ev entity.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	err := sse.ScanData(r, func(payload string) bool {
		if payload == sse.Sentinel {
			send(entity.StreamEvent{Done: true})
			return false
		}
		if payload == "" {
			return true
		}

		var chunk completionChunk
		if err := sonic.UnmarshalString(payload, &chunk); err != nil {
			c.logger.Warn("skipping malformed stream chunk", "error", err, "payload", payload)
			return true
		}
		if len(chunk.Choices) == 0 {
			return true
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			return send(entity.StreamEvent{Text: text})
		}
		return true
	})
	if err != nil {
		// The caller may simply have cancelled; that is not a stream fault.
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("upstream stream read failed", "error", err)
		send(entity.StreamEvent{Error: fmt.Sprintf("stream read failed: %v", err)})
	}
}
