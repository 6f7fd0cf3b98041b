package models

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Completer is a plain text-in text-out wrapper over a chat model, for
// callers that need single completions rather than a conversation.
type Completer struct {
	llm model.BaseChatModel
}

// NewCompleter wraps a chat model.
func NewCompleter(llm model.BaseChatModel) *Completer {
	return &Completer{llm: llm}
}

// Complete sends one system+user exchange and returns the response text.
func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	msgs := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: prompt},
	}
	result, err := c.llm.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate: %w", HandleError(err))
	}
	return result.Content, nil
}
