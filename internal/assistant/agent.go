package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/schema"

	"github.com/mnemo-ai/mnemo/internal/models"
)

// maxToolRounds bounds tool-call round trips within a single model call of
// the request loop.
const maxToolRounds = 4

// converse runs the model until it produces a text reply, dispatching tool
// calls in between.
func (a *Assistant) converse(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	for round := 0; ; round++ {
		out, err := a.llm.Generate(ctx, msgs)
		if err != nil {
			return nil, models.HandleError(err)
		}
		if len(out.ToolCalls) == 0 {
			return out, nil
		}
		if round >= maxToolRounds {
			return nil, fmt.Errorf("tool loop exceeded %d rounds", maxToolRounds)
		}

		msgs = append(msgs, out)
		for _, tc := range out.ToolCalls {
			msgs = append(msgs, &schema.Message{
				Role:       schema.Tool,
				ToolCallID: tc.ID,
				Content:    a.runTool(ctx, tc),
			})
		}
	}
}

// runTool executes one tool call. Failures are reported back to the model as
// tool output rather than aborting the request.
func (a *Assistant) runTool(ctx context.Context, tc schema.ToolCall) string {
	t, ok := a.tools[tc.Function.Name]
	if !ok {
		slog.Warn("model requested unknown tool", "tool", tc.Function.Name)
		return fmt.Sprintf("error: unknown tool %q", tc.Function.Name)
	}
	result, err := t.InvokableRun(ctx, tc.Function.Arguments)
	if err != nil {
		slog.Warn("tool call failed", "tool", tc.Function.Name, "error", err)
		return fmt.Sprintf("error: %v", err)
	}
	return result
}
