package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lvyanru/stockchat/internal/domain"
	"github.com/lvyanru/stockchat/internal/domain/entity"
)

// SystemPrompt is injected when the caller's history carries no system
// message. It fixes the ticker convention the assistant must use so the
// rendering layer can detect chartable symbols: $SYMBOL, uppercase, 1-5
// letters. The CLI parser keys off the same convention.
const SystemPrompt = "You are a helpful AI assistant. You can help with various tasks including analyzing stock data. " +
	"When users ask about stock prices, you MUST include the stock symbol in your response in the format $SYMBOL " +
	"(e.g., $AAPL for Apple, $GOOGL for Google). The symbol must be prefixed with $ and be in uppercase letters. " +
	"This format is required for the stock chart to be displayed."

const maxMessageLength = 10000

// chatUsecase is the request gate in front of the upstream reader. The
// rate limit lives in the handler, keyed by client address; everything
// else from the gate contract is here.
type chatUsecase struct {
	streamer domain.CompletionStreamer
	logger   *slog.Logger
}

// NewChatUsecase creates the chat gate.
func NewChatUsecase(streamer domain.CompletionStreamer, logger *slog.Logger) domain.ChatUsecase {
	return &chatUsecase{
		streamer: streamer,
		logger:   logger,
	}
}

// OpenStream validates the request, short-circuits on a missing upstream
// credential, injects the system instruction if absent and opens the
// upstream stream. No network call is made for an invalid request.
func (u *chatUsecase) OpenStream(ctx context.Context, req *domain.ChatRequest) (<-chan entity.StreamEvent, error) {
	if err := u.validate(req); err != nil {
		return nil, err
	}

	if !u.streamer.Configured() {
		return nil, domain.NewMisconfiguredError("upstream API key is not configured")
	}

	messages := u.withSystemMessage(req.Messages)

	events, err := u.streamer.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (u *chatUsecase) validate(req *domain.ChatRequest) error {
	if req == nil || len(req.Messages) == 0 {
		return domain.NewInvalidRequestError("messages array is required")
	}

	for i, m := range req.Messages {
		switch m.Role {
		case entity.RoleUser, entity.RoleAssistant, entity.RoleSystem:
		default:
			return domain.NewInvalidRequestError(fmt.Sprintf("message %d has invalid role %q", i, m.Role))
		}
		if m.Content == "" {
			return domain.NewInvalidRequestError(fmt.Sprintf("message %d has empty content", i))
		}
		if len(m.Content) > maxMessageLength {
			return domain.NewInvalidRequestError(fmt.Sprintf("message %d too long (max %d characters)", i, maxMessageLength))
		}
	}

	return nil
}

// withSystemMessage prepends the system instruction unless the history
// already carries one. The caller's slice is never mutated.
func (u *chatUsecase) withSystemMessage(messages []entity.ChatMessage) []entity.ChatMessage {
	for _, m := range messages {
		if m.Role == entity.RoleSystem {
			return messages
		}
	}

	out := make([]entity.ChatMessage, 0, len(messages)+1)
	out = append(out, entity.ChatMessage{Role: entity.RoleSystem, Content: SystemPrompt})
	out = append(out, messages...)
	return out
}
