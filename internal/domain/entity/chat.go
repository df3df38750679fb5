package entity

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is a single transcript entry. Immutable once finalized.
type ChatMessage struct {
	ID        string
	Role      string // user, assistant, system
	Content   string
	Timestamp time.Time
}

// StreamEvent is one element of the normalized event stream produced by
// the upstream reader: a content delta, the terminal Done marker, or a
// terminal error. Exactly one of the three is meaningful per event.
type StreamEvent struct {
	Text  string
	Done  bool
	Error string
}
