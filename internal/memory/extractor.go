package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/source"
)

// minSubstantiveLen filters out one-word reactions before spending a model
// call on them.
const minSubstantiveLen = 5

// Extractor turns batches of conversation turns into candidate facts.
// One model call is made per originating source, so facts are never
// cross-attributed between unrelated conversations.
type Extractor struct {
	llm Completer
}

// NewExtractor creates an Extractor backed by the given completer.
func NewExtractor(llm Completer) *Extractor {
	return &Extractor{llm: llm}
}

// Extract produces zero or more Candidates from the batch. A malformed
// model response for one source group is logged and yields no candidates
// for that group; other groups proceed.
func (e *Extractor) Extract(ctx context.Context, turns []source.Turn) []Candidate {
	groups, order := groupBySource(turns)

	var candidates []Candidate
	for _, sourceID := range order {
		group := groups[sourceID]
		if !hasSubstantiveContent(group) {
			continue
		}

		resp, err := e.llm.Complete(ctx, factExtractionSystemPrompt, conversationPrompt(group))
		if err != nil {
			slog.Warn("fact extraction failed", "source", sourceID, "error", err)
			continue
		}

		parsed := parseFacts(resp)
		if len(parsed) == 0 {
			continue
		}
		for _, f := range parsed {
			candidates = append(candidates, Candidate{
				Text:     f.Content,
				Topic:    f.Topic,
				UserID:   f.UserID,
				SourceID: sourceID,
			})
		}
		slog.Debug("extracted candidates", "source", sourceID, "count", len(parsed))
	}
	return candidates
}

// groupBySource splits turns by originating source, preserving first-seen
// source order.
func groupBySource(turns []source.Turn) (map[string][]source.Turn, []string) {
	groups := make(map[string][]source.Turn)
	var order []string
	for _, t := range turns {
		if _, ok := groups[t.SourceID]; !ok {
			order = append(order, t.SourceID)
		}
		groups[t.SourceID] = append(groups[t.SourceID], t)
	}
	return groups, order
}

// hasSubstantiveContent reports whether any turn in the group carries enough
// text to be worth an extraction call.
func hasSubstantiveContent(turns []source.Turn) bool {
	for _, t := range turns {
		if len(strings.TrimSpace(t.Content)) >= minSubstantiveLen {
			return true
		}
	}
	return false
}

type extractedFact struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
	Topic   string `json:"topic"`
}

type factResponse struct {
	Facts []extractedFact `json:"facts"`
}

// parseFacts extracts facts from a model response, handling raw JSON and
// markdown fences. Anything unparseable yields nil.
func parseFacts(resp string) []extractedFact {
	resp = stripCodeFences(resp)

	var parsed factResponse
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		slog.Debug("unparseable extraction response", "error", err)
		return nil
	}

	valid := parsed.Facts[:0]
	for _, f := range parsed.Facts {
		if strings.TrimSpace(f.Content) == "" {
			continue
		}
		valid = append(valid, f)
	}
	return valid
}
