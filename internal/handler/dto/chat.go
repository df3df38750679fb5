package dto

// ChatMessage is the wire form of a transcript entry.
type ChatMessage struct {
	Role    string `json:"role"`    // user, assistant, system
	Content string `json:"content"` // message content
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ErrorResponse is the JSON body of every non-streaming error reply.
// ResetTime is only set for rate-limit rejections.
type ErrorResponse struct {
	Error     string `json:"error"`
	ResetTime string `json:"resetTime,omitempty"`
}
