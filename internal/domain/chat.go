package domain

import (
	"context"
	"time"

	"github.com/lvyanru/stockchat/internal/domain/entity"
)

// ChatRequest is the usecase-level chat request: the caller's transcript
// including the newest user message. The relay never mutates it.
type ChatRequest struct {
	Messages []entity.ChatMessage
}

// RateDecision is the outcome of a rate-limit check. ResetAt is only
// meaningful when Allowed is false.
type RateDecision struct {
	Allowed bool
	ResetAt time.Time
}

// RateLimiter admits or rejects a request for a client key. Implementations
// must be safe for concurrent use.
type RateLimiter interface {
	// CheckAndRecord counts the request against the key's current window
	// and reports whether it is admitted. A rejected request does not
	// consume window capacity.
	CheckAndRecord(key string) RateDecision
}

// CompletionStreamer opens a streaming completion against the upstream
// provider and normalizes its wire format into StreamEvents.
type CompletionStreamer interface {
	// Configured reports whether the upstream credential is present.
	// When false, StreamCompletion fails before any network call.
	Configured() bool

	// StreamCompletion issues the upstream request and returns the event
	// channel. The channel is closed when the stream ends; if it ends
	// without a Done event the stream was truncated and consumers treat it
	// as an implicit end. Errors after the stream has started arrive as a
	// single Error event, never as a panic or an unclosed channel.
	StreamCompletion(ctx context.Context, messages []entity.ChatMessage) (<-chan entity.StreamEvent, error)
}

// QuoteProvider returns the raw daily price series payload for a symbol.
type QuoteProvider interface {
	DailySeries(ctx context.Context, symbol string) ([]byte, error)
}

// ChatUsecase is the request gate: validation, credential check and
// system-instruction injection, then the upstream stream.
type ChatUsecase interface {
	OpenStream(ctx context.Context, req *ChatRequest) (<-chan entity.StreamEvent, error)
}

// StockUsecase validates a ticker symbol and fetches its series.
type StockUsecase interface {
	Series(ctx context.Context, symbol string) ([]byte, error)
}
