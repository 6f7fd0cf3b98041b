package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
)

// Planner asks the model for one ADD/UPDATE/DELETE/NONE decision list
// covering all candidates of a pass.
type Planner struct {
	llm Completer
}

// NewPlanner creates a Planner backed by the given completer.
func NewPlanner(llm Completer) *Planner {
	return &Planner{llm: llm}
}

// Plan produces the decision list for the pass. An unparseable model
// response collapses the whole pass to an empty list: consolidation passes
// are allowed to be silent no-ops.
func (p *Planner) Plan(ctx context.Context, candidates []Candidate, refs *RefSet) []Decision {
	if len(candidates) == 0 {
		return nil
	}

	resp, err := p.llm.Complete(ctx, reconcileSystemPrompt, reconcilePrompt(candidates, refs))
	if err != nil {
		slog.Warn("reconciliation planning failed", "error", err)
		return nil
	}

	decisions := parseDecisions(resp)
	slog.Debug("planned decisions", "candidates", len(candidates), "existing", refs.Len(), "decisions", len(decisions))
	return decisions
}

type plannedItem struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Event string `json:"event"`
}

type planResponse struct {
	Memory []plannedItem `json:"memory"`
}

// parseDecisions parses the model's decision list with strict parse-or-drop
// semantics: unknown events and malformed ids drop the item, a malformed
// response drops everything.
func parseDecisions(resp string) []Decision {
	resp = stripCodeFences(resp)

	var parsed planResponse
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		slog.Warn("unparseable reconciliation response", "error", err)
		return nil
	}

	var decisions []Decision
	for _, item := range parsed.Memory {
		action := Action(strings.ToUpper(strings.TrimSpace(item.Event)))
		switch action {
		case ActionAdd:
			if strings.TrimSpace(item.Text) == "" {
				continue
			}
			decisions = append(decisions, Decision{Action: ActionAdd, Text: item.Text})
		case ActionUpdate:
			tempID, err := strconv.Atoi(strings.TrimSpace(item.ID))
			if err != nil || strings.TrimSpace(item.Text) == "" {
				slog.Debug("dropping malformed UPDATE decision", "id", item.ID)
				continue
			}
			decisions = append(decisions, Decision{Action: ActionUpdate, TempID: tempID, Text: item.Text})
		case ActionDelete, ActionNone:
			tempID, err := strconv.Atoi(strings.TrimSpace(item.ID))
			if err != nil {
				slog.Debug("dropping decision with malformed id", "event", item.Event, "id", item.ID)
				continue
			}
			decisions = append(decisions, Decision{Action: action, TempID: tempID, Text: item.Text})
		default:
			slog.Debug("dropping decision with unknown event", "event", item.Event)
		}
	}
	return decisions
}
