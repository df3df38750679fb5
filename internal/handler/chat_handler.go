package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	hertzsse "github.com/cloudwego/hertz/pkg/protocol/sse"
	"github.com/google/uuid"

	"github.com/lvyanru/stockchat/internal/domain"
	"github.com/lvyanru/stockchat/internal/domain/entity"
	"github.com/lvyanru/stockchat/internal/handler/dto"
	"github.com/lvyanru/stockchat/pkg/sse"
)

// rateLimitFallbackKey is used when the client address is unavailable.
const rateLimitFallbackKey = "127.0.0.1"

// ChatHandler is the HTTP surface of the relay: request gate in front,
// downstream SSE writer behind.
type ChatHandler struct {
	usecase domain.ChatUsecase
	limiter domain.RateLimiter
	logger  *slog.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(usecase domain.ChatUsecase, limiter domain.RateLimiter, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		usecase: usecase,
		limiter: limiter,
		logger:  logger,
	}
}

// Chat handles POST /chat: validates the body, applies the fixed-window
// rate limit keyed by client address, then relays the upstream stream as
// normalized SSE frames.
func (h *ChatHandler) Chat(ctx context.Context, c *app.RequestContext) {
	key := c.ClientIP()
	if key == "" {
		key = rateLimitFallbackKey
	}

	if d := h.limiter.CheckAndRecord(key); !d.Allowed {
		h.logger.Warn("request rate limited", "key", key, "reset_at", d.ResetAt)
		ErrorResponse(c, &domain.RateLimitError{ResetAt: d.ResetAt})
		return
	}

	var req dto.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		h.logger.Error("failed to bind chat request", "error", err)
		ErrorResponse(c, domain.NewInvalidRequestError("invalid request: messages array is required"))
		return
	}
	if len(req.Messages) == 0 {
		ErrorResponse(c, domain.NewInvalidRequestError("invalid request: messages array is required"))
		return
	}

	chatReq := &domain.ChatRequest{
		Messages: make([]entity.ChatMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, entity.ChatMessage{
			ID:        uuid.New().String(),
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: time.Now(),
		})
	}

	events, err := h.usecase.OpenStream(ctx, chatReq)
	if err != nil {
		h.logger.Error("failed to open upstream stream", "error", err)
		ErrorResponse(c, err)
		return
	}

	h.relay(ctx, c, events)
}

// relay writes the event stream to the client as SSE. It terminates on the
// Done sentinel, on a terminal error event or on upstream channel closure;
// a write failure means the client is gone, so it stops silently and lets
// the request context teardown sever the upstream connection.
func (h *ChatHandler) relay(ctx context.Context, c *app.RequestContext, events <-chan entity.StreamEvent) {
	c.SetStatusCode(consts.StatusOK)
	c.Response.Header.Set("Cache-Control", "no-cache")

	writer := hertzsse.NewWriter(c)
	defer writer.Close()

	for ev := range events {
		switch {
		case ev.Error != "":
			// Delivered in-stream so the client renders it as a chat bubble.
			if err := h.writeFrame(writer, sse.ErrorFrame{Error: ev.Error}); err != nil {
				h.logger.Debug("client disconnected during error frame", "error", err)
			}
			return

		case ev.Done:
			if err := writer.WriteEvent("", "", []byte(sse.Sentinel)); err != nil {
				h.logger.Debug("client disconnected during done frame", "error", err)
			}
			return

		case ev.Text != "":
			if err := h.writeFrame(writer, sse.ContentFrame{Content: ev.Text}); err != nil {
				h.logger.Debug("client disconnected during content frame", "error", err)
				return
			}
		}
	}
	// Upstream closed without a sentinel: implicit end, nothing more to write.
}

// writeFrame emits one `data: <json>\n\n` frame. The Hertz SSE writer adds
// the framing and flushes.
func (h *ChatHandler) writeFrame(writer *hertzsse.Writer, frame interface{}) error {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		return err
	}
	return writer.WriteEvent("", "", payload)
}
