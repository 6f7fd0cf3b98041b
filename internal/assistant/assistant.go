// Package assistant runs the conversational request loop: history plus
// retrieved facts go to the model, which either answers or asks the requester
// a follow-up question before answering.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/sessions"
	"github.com/mnemo-ai/mnemo/internal/source"
)

// ErrBudgetExceeded means the request loop hit its model-call budget without
// producing a final answer. It is terminal and user-visible.
var ErrBudgetExceeded = errors.New("request budget exceeded")

// FactRetriever fetches stored facts relevant to a query.
type FactRetriever interface {
	Retrieve(ctx context.Context, query string) ([]memory.Fact, error)
}

// Config wires an Assistant.
type Config struct {
	Model     model.ToolCallingChatModel
	Tools     []tool.InvokableTool // optional
	Sessions  *sessions.Registry
	Retriever FactRetriever        // optional
	Source    source.Source        // where follow-up questions are sent
	Replies   source.ReplyWaiter   // optional; without it a question is the final answer
	Bus       *events.Bus          // optional
	Persona   string

	FollowUpTimeout time.Duration // default 60s
	Budget          int           // model calls per request, default 5
}

// Assistant handles chat requests for all conversations.
type Assistant struct {
	llm             model.ToolCallingChatModel
	tools           map[string]tool.InvokableTool
	sessions        *sessions.Registry
	retriever       FactRetriever
	src             source.Source
	replies         source.ReplyWaiter
	bus             *events.Bus
	persona         string
	followUpTimeout time.Duration
	budget          int
}

// New creates an Assistant, binding the configured tools to the model.
func New(ctx context.Context, cfg Config) (*Assistant, error) {
	llm := cfg.Model
	byName := make(map[string]tool.InvokableTool, len(cfg.Tools))
	if len(cfg.Tools) > 0 {
		infos := make([]*schema.ToolInfo, 0, len(cfg.Tools))
		for _, t := range cfg.Tools {
			info, err := t.Info(ctx)
			if err != nil {
				return nil, fmt.Errorf("tool info: %w", err)
			}
			infos = append(infos, info)
			byName[info.Name] = t
		}
		bound, err := llm.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
		llm = bound
	}

	followUp := cfg.FollowUpTimeout
	if followUp <= 0 {
		followUp = 60 * time.Second
	}
	budget := cfg.Budget
	if budget <= 0 {
		budget = 5
	}

	return &Assistant{
		llm:             llm,
		tools:           byName,
		sessions:        cfg.Sessions,
		retriever:       cfg.Retriever,
		src:             cfg.Source,
		replies:         cfg.Replies,
		bus:             cfg.Bus,
		persona:         cfg.Persona,
		followUpTimeout: followUp,
		budget:          budget,
	}, nil
}

// HandleRequest runs one request to completion and returns the final answer.
// The answer text is returned to the caller; follow-up questions in between
// are sent through the conversation source directly.
func (a *Assistant) HandleRequest(ctx context.Context, conversationID, requesterID, text string) (string, error) {
	a.sessions.Append(conversationID, sessions.Message{Role: string(schema.User), Content: text})
	a.publish(events.EventUserMessage, conversationID, map[string]any{"requester": requesterID})

	facts := a.recall(ctx, text)

	for call := 0; call < a.budget; call++ {
		reply, err := a.converse(ctx, a.buildMessages(conversationID, facts))
		if err != nil {
			return "", fmt.Errorf("model call %d: %w", call+1, err)
		}

		kind, content := parseReply(reply.Content)
		a.sessions.Append(conversationID, sessions.Message{Role: string(schema.Assistant), Content: content})

		if kind == replyAnswer {
			a.publish(events.EventAssistantMessage, conversationID, map[string]any{"calls": call + 1})
			return content, nil
		}

		// Follow-up question. Without a way to wait for the requester the
		// question itself is the best final answer we have.
		a.publish(events.EventFollowUpQuestion, conversationID, nil)
		if a.replies == nil {
			return content, nil
		}
		if a.src != nil {
			if err := a.src.Send(ctx, conversationID, content); err != nil {
				slog.Warn("follow-up send failed", "conversation", conversationID, "error", err)
			}
		}

		waitCtx, cancel := context.WithTimeout(ctx, a.followUpTimeout)
		turn, err := a.replies.WaitForReply(waitCtx, conversationID, requesterID)
		cancel()
		if err != nil {
			if errors.Is(err, source.ErrNoReply) {
				slog.Info("follow-up timed out", "conversation", conversationID)
				return content, nil
			}
			return "", fmt.Errorf("wait for reply: %w", err)
		}
		a.sessions.Append(conversationID, sessions.Message{Role: string(schema.User), Content: turn.Content})
	}

	slog.Warn("request budget exhausted", "conversation", conversationID, "budget", a.budget)
	return "", ErrBudgetExceeded
}

// ClearHistory discards the conversation's rolling window.
func (a *Assistant) ClearHistory(conversationID string) {
	a.sessions.Clear(conversationID)
}

func (a *Assistant) recall(ctx context.Context, query string) []memory.Fact {
	if a.retriever == nil {
		return nil
	}
	facts, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		// Missing recall degrades the answer, it doesn't block it.
		slog.Warn("fact retrieval failed", "error", err)
		return nil
	}
	return facts
}

func (a *Assistant) buildMessages(conversationID string, facts []memory.Fact) []*schema.Message {
	history := a.sessions.History(conversationID)
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, &schema.Message{Role: schema.System, Content: systemPrompt(a.persona, facts)})
	for _, m := range history {
		msgs = append(msgs, m.ToSchemaMessage())
	}
	return msgs
}

func (a *Assistant) publish(t events.EventType, conversationID string, payload map[string]any) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(events.NewConversationEvent(t, events.SourceAssistant, payload, conversationID))
}
