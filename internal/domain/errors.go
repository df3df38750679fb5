package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the relay's error taxonomy.
var (
	// ErrInvalidRequest means the client input was malformed. Not retryable.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited means the caller exhausted its request window.
	ErrRateLimited = errors.New("rate limited")
	// ErrMisconfigured means a required credential or setting is missing.
	// Operator action required; not retryable by the client.
	ErrMisconfigured = errors.New("service misconfigured")
	// ErrUpstream means the completion provider rejected or failed the call.
	ErrUpstream = errors.New("upstream error")
	// ErrModelUnavailable means the configured model has been decommissioned.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInternal is an unexpected server-side failure.
	ErrInternal = errors.New("internal error")
)

// DomainError carries a stable code and a user-safe message alongside the
// wrapped sentinel, so handlers can map it to an HTTP response without
// leaking internals.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage returns the user-facing message without internal detail.
func (e *DomainError) UserMessage() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// RateLimitError is a DomainError that additionally carries the instant at
// which the caller's window resets, for the Retry-After header and the
// resetTime response field.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, window resets at %s", e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ModelUnavailableError reports a decommissioned model together with the
// models that are still known to work.
type ModelUnavailableError struct {
	AvailableModels []string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model is no longer available, use one of: %s", strings.Join(e.AvailableModels, ", "))
}

func (e *ModelUnavailableError) Unwrap() error {
	return ErrModelUnavailable
}

// NewInvalidRequestError creates a malformed-input error.
func NewInvalidRequestError(message string) error {
	return &DomainError{
		Code:    "INVALID_REQUEST",
		Message: message,
		Err:     ErrInvalidRequest,
	}
}

// NewMisconfiguredError creates a missing-configuration error.
func NewMisconfiguredError(message string) error {
	return &DomainError{
		Code:    "MISCONFIGURED",
		Message: message,
		Err:     ErrMisconfigured,
	}
}

// NewUpstreamError creates a provider-fault error with a user-visible
// message taken from the provider's error body.
func NewUpstreamError(message string) error {
	return &DomainError{
		Code:    "UPSTREAM_ERROR",
		Message: message,
		Err:     ErrUpstream,
	}
}

// NewInternalError wraps an unexpected failure without exposing detail.
func NewInternalError(err error) error {
	return &DomainError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Err:     fmt.Errorf("%w: %v", ErrInternal, err),
	}
}

// IsInvalidRequest reports whether err is a malformed-input error.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsMisconfigured reports whether err is a missing-configuration error.
func IsMisconfigured(err error) bool {
	return errors.Is(err, ErrMisconfigured)
}

// IsUpstream reports whether err is a provider fault.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsModelUnavailable reports whether err is a decommissioned-model fault.
func IsModelUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}
