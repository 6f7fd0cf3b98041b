package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Mutator executes a decision list against the index. Decisions target
// disjoint facts, so they run concurrently with no ordering constraint; each
// operation's failure is logged individually and excluded from the audit
// list. There is no atomicity across the batch.
type Mutator struct {
	index Index
}

// NewMutator creates a Mutator over the given index.
func NewMutator(index Index) *Mutator {
	return &Mutator{index: index}
}

// Apply runs the decisions and returns the audit list in decision order.
// NONE decisions and decisions referencing unknown temp ids produce no
// operation and no audit entry.
func (m *Mutator) Apply(ctx context.Context, decisions []Decision, refs *RefSet, prov Provenance) []AuditEntry {
	entries := make([]*AuditEntry, len(decisions))

	var wg sync.WaitGroup
	for i, d := range decisions {
		if d.Action == ActionNone {
			continue
		}
		wg.Add(1)
		go func(i int, d Decision) {
			defer wg.Done()
			entries[i] = m.applyOne(ctx, d, refs, prov)
		}(i, d)
	}
	wg.Wait()

	audit := make([]AuditEntry, 0, len(decisions))
	for _, e := range entries {
		if e != nil {
			audit = append(audit, *e)
		}
	}
	return audit
}

func (m *Mutator) applyOne(ctx context.Context, d Decision, refs *RefSet, prov Provenance) *AuditEntry {
	switch d.Action {
	case ActionAdd:
		id, err := m.index.Insert(ctx, Fact{
			Text:     d.Text,
			UserID:   prov.UserID,
			SourceID: prov.SourceID,
		})
		if err != nil {
			slog.Warn("memory add failed", "error", err)
			return nil
		}
		return &AuditEntry{Action: ActionAdd, FactID: id, Text: d.Text, At: time.Now()}

	case ActionUpdate:
		old, ok := refs.Fact(d.TempID)
		if !ok {
			slog.Debug("dropping UPDATE with unknown temp id", "temp_id", d.TempID)
			return nil
		}
		updated := old
		updated.Text = d.Text
		if prov.UserID != "" {
			updated.UserID = prov.UserID
		}
		if prov.SourceID != "" {
			updated.SourceID = prov.SourceID
		}
		if err := m.index.Update(ctx, updated); err != nil {
			slog.Warn("memory update failed", "fact_id", old.ID, "error", err)
			return nil
		}
		return &AuditEntry{Action: ActionUpdate, FactID: old.ID, Text: d.Text, PreviousText: old.Text, At: time.Now()}

	case ActionDelete:
		old, ok := refs.Fact(d.TempID)
		if !ok {
			slog.Debug("dropping DELETE with unknown temp id", "temp_id", d.TempID)
			return nil
		}
		if err := m.index.Delete(ctx, old.ID); err != nil {
			slog.Warn("memory delete failed", "fact_id", old.ID, "error", err)
			return nil
		}
		return &AuditEntry{Action: ActionDelete, FactID: old.ID, Text: old.Text, At: time.Now()}
	}
	return nil
}
