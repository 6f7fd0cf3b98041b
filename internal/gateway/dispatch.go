package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mnemo-ai/mnemo/internal/assistant"
	"github.com/mnemo-ai/mnemo/internal/source"
)

// Dispatcher routes incoming chat messages. A message that satisfies a
// pending follow-up wait belongs to the request already in flight; anything
// else starts a new one.
type Dispatcher struct {
	hub       *source.ChannelHub
	assistant *assistant.Assistant
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(hub *source.ChannelHub, a *assistant.Assistant) *Dispatcher {
	return &Dispatcher{hub: hub, assistant: a}
}

// Incoming records one user message and, unless it was consumed as a
// follow-up reply, handles it as a fresh request in the background. The
// answer goes back through the conversation source.
func (d *Dispatcher) Incoming(ctx context.Context, conversationID, authorID, content string) {
	_, consumed := d.hub.Record(source.Turn{
		SourceID: conversationID,
		AuthorID: authorID,
		Role:     source.RoleUser,
		Content:  content,
	})
	if consumed {
		return
	}

	// Detach from the socket's lifetime; the request outlives the frame.
	reqCtx := context.WithoutCancel(ctx)
	go func() {
		answer, err := d.assistant.HandleRequest(reqCtx, conversationID, authorID, content)
		if err != nil {
			if errors.Is(err, assistant.ErrBudgetExceeded) {
				answer = "I couldn't get to an answer within my question budget. Please rephrase with more detail."
			} else {
				slog.Error("request failed", "conversation", conversationID, "error", err)
				answer = "Something went wrong while handling that. Please try again."
			}
		}
		if err := d.hub.Send(reqCtx, conversationID, answer); err != nil {
			slog.Warn("answer delivery failed", "conversation", conversationID, "error", err)
		}
	}()
}

// ClearHistory discards a conversation's rolling window.
func (d *Dispatcher) ClearHistory(conversationID string) {
	d.assistant.ClearHistory(conversationID)
}
