// Package memory implements mnemo's long-term memory: candidate-fact
// extraction from conversation, vector-similarity deduplication, and
// reconciliation of new facts against the existing store.
package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fact is a persisted, atomic long-term memory entry. Its text names its
// subject explicitly (never a pronoun) so it stays readable outside the
// conversation it came from.
type Fact struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Topic     string    `json:"topic,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	SourceID  string    `json:"source_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Candidate is a newly extracted possible fact awaiting reconciliation.
// Candidates are never persisted.
type Candidate struct {
	Text     string `json:"text"`
	Topic    string `json:"topic,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// Action is the reconciliation verdict for one item.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionNone   Action = "NONE"
)

// Decision is one entry of the reconciliation plan. TempID refers to the
// pass-local alias of an existing fact; it is meaningless for ADD.
type Decision struct {
	Action Action
	TempID int
	Text   string
}

// AuditEntry records one applied mutation. The audit list is the observable
// result of a consolidation pass.
type AuditEntry struct {
	Action       Action    `json:"action"`
	FactID       string    `json:"fact_id"`
	Text         string    `json:"text"`
	PreviousText string    `json:"previous_text,omitempty"`
	At           time.Time `json:"at"`
}

// Provenance is attached to every fact created or updated in a pass.
type Provenance struct {
	UserID   string
	SourceID string
}

// RefSet maps pass-local temp ids to existing facts, so model output never
// has to echo real storage identifiers. Temp ids are the slice indices.
type RefSet struct {
	facts []Fact
}

// Fact returns the fact aliased by tempID.
func (r *RefSet) Fact(tempID int) (Fact, bool) {
	if r == nil || tempID < 0 || tempID >= len(r.facts) {
		return Fact{}, false
	}
	return r.facts[tempID], true
}

// Len returns the number of aliased facts.
func (r *RefSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.facts)
}

// Facts returns the aliased facts in temp-id order.
func (r *RefSet) Facts() []Fact {
	if r == nil {
		return nil
	}
	return r.facts
}

func generateFactID() string {
	u := uuid.New().String()
	return "fact_" + strings.ReplaceAll(u[:8], "-", "")
}
