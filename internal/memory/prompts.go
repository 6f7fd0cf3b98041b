package memory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/source"
)

// factExtractionSystemPrompt instructs the model to curate atomic facts from
// conversation, naming subjects explicitly so facts stay readable outside
// their original context.
const factExtractionSystemPrompt = `You are a curator of factual information. Your role is to extract relevant pieces of information from conversations and organize them into distinct, manageable facts. You remember factual information, recent events, and interesting things people say. You do not remember subjective statements or personal opinions.

Policies:
- Name the subject of every fact explicitly. Never use pronouns or demonstratives like "I", "you", "he", "she", "they", "the user".
- Keep each fact concise, ideally one sentence.
- Do not store sensitive information such as passwords or credit card numbers.
- If the conversation contains nothing worth remembering, return an empty list.

Return the facts as JSON only, in this shape:
{"facts": [{"content": "<fact>", "user_id": "<user id>", "topic": "<one or two keywords>"}]}

Examples:
- "Hi" -> {"facts": []}
- "I like cats." -> {"facts": []}
- "The largest mammal is the blue whale. They can weigh up to 200 tons." ->
  {"facts": [{"content": "The largest mammal is the blue whale", "user_id": "...", "topic": "whales"}, {"content": "Blue whales can weigh up to 200 tons", "user_id": "...", "topic": "whales"}]}`

// conversationPrompt renders a batch of turns for extraction.
func conversationPrompt(turns []source.Turn) string {
	var sb strings.Builder
	sb.WriteString("Does the following conversation contain any facts or information worth remembering?\n<conversation>\n")
	for _, t := range turns {
		fmt.Fprintf(&sb, "<%s id:%s>: %s\n", t.Role, t.AuthorID, t.Content)
	}
	sb.WriteString("</conversation>\nReturn JSON only.")
	return sb.String()
}

// reconcileSystemPrompt is the decision procedure for merging new facts into
// the existing store. The model must echo the supplied ids exactly.
const reconcileSystemPrompt = `You are a smart memory manager which controls the memory of a system. You receive the existing memory elements (each with an id) and a list of newly retrieved facts, and decide what to do with each. You can perform four operations:

- ADD: the retrieved fact contains new information not present in the memory. Add it as a new element.
- UPDATE: the retrieved fact is already present but more detailed or different. Replace the existing element's text with the retrieved fact. Example: memory "The sun is a star" plus fact "The sun is a yellow dwarf star" becomes UPDATE with the new text.
- DELETE: the retrieved fact contradicts an existing element. Delete the stale element; the correct fact is added separately. Example: memory "Dinosaurs are still alive" plus fact "Dinosaurs are extinct" deletes the memory.
- NONE: the retrieved fact is already covered by an existing element. Make no change.

Rules:
- Echo back the exact id of the element an UPDATE, DELETE, or NONE refers to. Never invent ids.
- Include the subject's name in every text. Use clear and concise language.
- Return JSON only, in this shape:
{"memory": [{"id": "<id>", "text": "<text>", "event": "ADD|UPDATE|DELETE|NONE", "old_memory": "<previous text, for UPDATE>"}]}`

// reconcilePrompt renders the temp-id-keyed existing facts and the new
// candidate texts for one planning call.
func reconcilePrompt(candidates []Candidate, refs *RefSet) string {
	type oldItem struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	old := make([]oldItem, 0, refs.Len())
	for i, f := range refs.Facts() {
		old = append(old, oldItem{ID: fmt.Sprintf("%d", i), Text: f.Text})
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	oldJSON, _ := json.MarshalIndent(old, "", "  ")
	newJSON, _ := json.MarshalIndent(texts, "", "  ")

	var sb strings.Builder
	sb.WriteString("Existing memory:\n")
	sb.Write(oldJSON)
	sb.WriteString("\n\nRetrieved facts:\n")
	sb.Write(newJSON)
	sb.WriteString("\n\nDecide an operation for every item. Return JSON only.")
	return sb.String()
}

// stripCodeFences removes surrounding markdown code fences from a model
// response, if present.
func stripCodeFences(resp string) string {
	resp = strings.TrimSpace(resp)
	if !strings.HasPrefix(resp, "```") {
		return resp
	}
	lines := strings.Split(resp, "\n")
	if len(lines) < 2 {
		return resp
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
