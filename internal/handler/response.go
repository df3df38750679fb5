package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/stockchat/internal/domain"
	"github.com/lvyanru/stockchat/internal/handler/dto"
)

// ErrorResponse maps a domain error to its HTTP reply. Bodies follow the
// `{"error": ...}` shape; rate-limit rejections additionally carry the
// window reset time and a Retry-After header.
func ErrorResponse(c *app.RequestContext, err error) {
	userMessage := func(err error) string {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return domainErr.UserMessage()
		}
		return err.Error()
	}

	switch {
	case domain.IsRateLimited(err):
		var rl *domain.RateLimitError
		resp := dto.ErrorResponse{Error: "Too many requests"}
		if errors.As(err, &rl) {
			resp.ResetTime = rl.ResetAt.UTC().Format(time.RFC3339)
			retryAfter := int(time.Until(rl.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Response.Header.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		}
		c.JSON(consts.StatusTooManyRequests, resp)

	case domain.IsInvalidRequest(err):
		c.JSON(consts.StatusBadRequest, dto.ErrorResponse{Error: userMessage(err)})

	case domain.IsModelUnavailable(err):
		// Surfaced with the catalog of still-working models.
		c.JSON(consts.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})

	case domain.IsMisconfigured(err):
		c.JSON(consts.StatusInternalServerError, dto.ErrorResponse{Error: "API key not configured"})

	case domain.IsUpstream(err):
		c.JSON(consts.StatusInternalServerError, dto.ErrorResponse{Error: userMessage(err)})

	default:
		c.JSON(consts.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}
