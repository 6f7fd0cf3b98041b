// Package sessions tracks per-conversation rolling history windows.
package sessions

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// State is the lifecycle state of a conversation session.
type State string

const (
	// StateFresh means no history has been recorded yet.
	StateFresh State = "fresh"
	// StateActive means the session has history inside the idle window.
	StateActive State = "active"
	// StateStale means the idle timeout has elapsed since the last entry.
	// The next append resets the window first.
	StateStale State = "stale"
)

// Message is a single entry in a session's rolling window.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Ts      time.Time `json:"ts"`
}

// ToSchemaMessage converts a session Message to an Eino schema.Message.
func (m Message) ToSchemaMessage() *schema.Message {
	return &schema.Message{
		Role:    schema.RoleType(m.Role),
		Content: m.Content,
	}
}

// NewMessageFromSchema converts an Eino schema.Message to a session Message.
func NewMessageFromSchema(msg *schema.Message) Message {
	return Message{
		Role:    string(msg.Role),
		Content: msg.Content,
		Ts:      time.Now(),
	}
}

// Session is one conversation's bounded history. It is not safe for
// concurrent use; the Registry serializes access.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}
