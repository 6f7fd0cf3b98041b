package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/source"
)

type recordingSink struct {
	mu      sync.Mutex
	sources []string
	entries [][]AuditEntry
}

func (s *recordingSink) SaveAudit(_ context.Context, sourceID string, entries []AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, sourceID)
	s.entries = append(s.entries, entries)
	return nil
}

func newTestConsolidator(llm Completer, idx Index, bus *events.Bus, sink AuditSink) *Consolidator {
	return NewConsolidator(ConsolidatorConfig{
		Extractor: NewExtractor(llm),
		Resolver:  NewResolver(hashEmbedder{}, idx, 5),
		Planner:   NewPlanner(llm),
		Mutator:   NewMutator(idx),
		Bus:       bus,
		Audit:     sink,
	})
}

func TestRunPassEmptyBatch(t *testing.T) {
	c := newTestConsolidator(&scriptedCompleter{}, newStubIndex(), nil, nil)

	entries, err := c.RunPass(context.Background(), "general", nil)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries, got %+v", entries)
	}
}

func TestRunPassFullCycle(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{
		// extraction
		`{"facts": [{"content": "Alice lives in Lyon", "user_id": "alice", "topic": "location"}]}`,
		// reconciliation
		`{"memory": [{"id": "", "text": "Alice lives in Lyon", "event": "ADD"}]}`,
	}}
	idx := newStubIndex()
	bus := events.NewBus(16)
	defer bus.Close()
	sink := &recordingSink{}
	c := newTestConsolidator(llm, idx, bus, sink)

	turns := []source.Turn{{
		SourceID: "general",
		AuthorID: "alice",
		Role:     source.RoleUser,
		Content:  "I moved to Lyon last month",
	}}

	entries, err := c.RunPass(context.Background(), "general", turns)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != ActionAdd {
		t.Fatalf("expected one ADD, got %+v", entries)
	}
	if idx.Count() != 1 {
		t.Errorf("fact not stored: count=%d", idx.Count())
	}
	if idx.inserted[0].UserID != "alice" || idx.inserted[0].SourceID != "general" {
		t.Errorf("provenance missing: %+v", idx.inserted[0])
	}

	sink.mu.Lock()
	saved := len(sink.entries)
	sink.mu.Unlock()
	if saved != 1 {
		t.Errorf("audit not saved: %d batches", saved)
	}

	deadline := time.After(time.Second)
	for {
		for _, e := range bus.History(10) {
			if e.Type == events.EventMemoryUpdated {
				if e.Payload["mutations"] != 1 {
					t.Errorf("unexpected payload: %+v", e.Payload)
				}
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("memory.updated event never published")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunPassResolverFailureStopsBeforeMutation(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{
		`{"facts": [{"content": "Alice lives in Lyon", "user_id": "alice"}]}`,
	}}
	idx := newStubIndex()
	idx.searchErr = errors.New("store offline")
	c := newTestConsolidator(llm, idx, nil, nil)

	turns := []source.Turn{{
		SourceID: "general", AuthorID: "alice", Role: source.RoleUser,
		Content: "I moved to Lyon last month",
	}}

	if _, err := c.RunPass(context.Background(), "general", turns); err == nil {
		t.Fatal("expected pass to fail when resolution fails")
	}
	if len(idx.inserted)+len(idx.updated)+len(idx.deleted) != 0 {
		t.Error("no mutation may run after a failed resolution")
	}
	if llm.calls != 1 {
		t.Errorf("planner should never be called: %d model calls", llm.calls)
	}
}

func TestRunPassNoCandidatesIsSilent(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{`{"facts": []}`}}
	sink := &recordingSink{}
	c := newTestConsolidator(llm, newStubIndex(), nil, sink)

	turns := []source.Turn{{
		SourceID: "general", AuthorID: "alice", Role: source.RoleUser,
		Content: "nothing much happening today",
	}}

	entries, err := c.RunPass(context.Background(), "general", turns)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if entries != nil {
		t.Errorf("expected a silent no-op, got %+v", entries)
	}
	sink.mu.Lock()
	saved := len(sink.entries)
	sink.mu.Unlock()
	if saved != 0 {
		t.Errorf("no audit should be saved for a no-op pass")
	}
}
