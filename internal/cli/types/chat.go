package types

import "regexp"

// ChatMessage is the wire form of a transcript entry sent to the server.
type ChatMessage struct {
	Role    string `json:"role"`    // user, assistant, system
	Content string `json:"content"` // message content
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// StreamFrame is one normalized SSE payload from the relay: either a
// content delta or a terminal error.
type StreamFrame struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StreamEvent is the decoded event delivered to the consumer loop.
// Exactly one of the three fields is meaningful.
type StreamEvent struct {
	Text string
	Done bool
	Err  string
}

// ErrorResponse is the JSON body of a non-streaming error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	ResetTime string `json:"resetTime,omitempty"`
}

// tickerPattern matches the assistant's ticker convention: a $-prefixed
// symbol of 1-5 uppercase letters. Must stay in sync with the server's
// system prompt.
var tickerPattern = regexp.MustCompile(`\$([A-Z]{1,5})\b`)

// FindTicker returns the first ticker symbol referenced in text, without
// the $ prefix, or "" when none is present.
func FindTicker(text string) string {
	m := tickerPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
