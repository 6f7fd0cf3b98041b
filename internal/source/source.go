// Package source defines the conversation-source boundary: where turns come
// from and where replies go.
package source

import (
	"context"
	"time"
)

// Role identifies the author side of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message observed on a conversation source.
type Turn struct {
	ID            string    `json:"id"`
	SourceID      string    `json:"source_id"`
	AuthorID      string    `json:"author_id"`
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	At            time.Time `json:"at"`
	HasAttachment bool      `json:"has_attachment,omitempty"`
}

// Source is a monitored conversation channel.
type Source interface {
	// History returns turns observed on sourceID since the given time,
	// oldest first.
	History(ctx context.Context, sourceID string, since time.Time) ([]Turn, error)
	// Send delivers a message to sourceID on behalf of the assistant.
	Send(ctx context.Context, sourceID, content string) error
}

// ReplyWaiter blocks until the named requester posts another turn on the
// conversation, or the context expires.
type ReplyWaiter interface {
	WaitForReply(ctx context.Context, sourceID, requesterID string) (Turn, error)
}
