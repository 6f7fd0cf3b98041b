package assistant

import (
	"encoding/json"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/memory"
)

const defaultPersona = "You are mnemo, a helpful personal assistant with long-term memory of the people you talk to."

const replyProtocol = `Reply with a single JSON object and nothing else.
If you can answer now:
  {"type": "answer", "content": "<your answer>"}
If you need one specific piece of information from the user first:
  {"type": "question", "content": "<one short question>"}
Only ask a question when the answer genuinely depends on it.`

type replyKind int

const (
	replyAnswer replyKind = iota
	replyQuestion
)

// systemPrompt assembles persona, recalled facts, and the reply protocol.
func systemPrompt(persona string, facts []memory.Fact) string {
	if persona == "" {
		persona = defaultPersona
	}

	var b strings.Builder
	b.WriteString(persona)
	if len(facts) > 0 {
		b.WriteString("\n\nThings you remember that may be relevant:\n")
		for _, f := range facts {
			b.WriteString("- ")
			b.WriteString(f.Text)
			if f.UserID != "" {
				b.WriteString(" (about ")
				b.WriteString(f.UserID)
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(replyProtocol)
	return b.String()
}

type modelReply struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// parseReply interprets the model's response. Anything that isn't a
// well-formed question object is treated as a direct answer, raw text
// included.
func parseReply(raw string) (replyKind, string) {
	cleaned := strings.TrimSpace(trimCodeFences(raw))

	var r modelReply
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil || r.Content == "" {
		return replyAnswer, strings.TrimSpace(raw)
	}
	if r.Type == "question" {
		return replyQuestion, r.Content
	}
	return replyAnswer, r.Content
}

func trimCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return s
}
