package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/memory"
)

func openTestLog(t *testing.T) *AuditLog {
	t.Helper()
	l, err := OpenAuditLog(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("OpenAuditLog: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAuditLogRoundTrip(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	entries := []memory.AuditEntry{
		{Action: memory.ActionAdd, FactID: "fact_1", Text: "Alice lives in Lisbon", At: time.Now()},
		{Action: memory.ActionUpdate, FactID: "fact_2", Text: "Bob plays bass", PreviousText: "Bob plays guitar", At: time.Now()},
		{Action: memory.ActionDelete, FactID: "fact_3", Text: "Carol likes winter", At: time.Now()},
	}
	if err := l.SaveAudit(ctx, "chan-1", entries); err != nil {
		t.Fatalf("SaveAudit: %v", err)
	}

	records, err := l.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Action != string(memory.ActionDelete) {
		t.Errorf("expected DELETE first, got %s", records[0].Action)
	}
	if records[1].PreviousText != "Bob plays guitar" {
		t.Errorf("previous_text lost: %q", records[1].PreviousText)
	}
}

func TestAuditLogSourceFilter(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for _, src := range []string{"a", "b", "a"} {
		err := l.SaveAudit(ctx, src, []memory.AuditEntry{
			{Action: memory.ActionAdd, FactID: "f", Text: "t", At: time.Now()},
		})
		if err != nil {
			t.Fatalf("SaveAudit(%s): %v", src, err)
		}
	}

	records, err := l.Recent(ctx, "a", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for source a, got %d", len(records))
	}
	for _, r := range records {
		if r.SourceID != "a" {
			t.Errorf("filter leaked source %q", r.SourceID)
		}
	}
}

func TestAuditLogEmptySave(t *testing.T) {
	l := openTestLog(t)
	if err := l.SaveAudit(context.Background(), "chan", nil); err != nil {
		t.Fatalf("empty SaveAudit should be a no-op: %v", err)
	}
	records, err := l.Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestEventLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(16)
	defer bus.Close()

	el := NewEventLogger(dir, bus)
	defer el.Close()

	bus.Publish(events.NewConversationEvent(events.EventUserMessage, events.SourceGateway, map[string]any{"requester": "alice"}, "conv-1"))

	path := filepath.Join(dir, "conv-1.jsonl")
	deadline := time.Now().Add(2 * time.Second)
	var data []byte
	for time.Now().Before(deadline) {
		var err error
		if data, err = os.ReadFile(path); err == nil && len(data) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(data) == 0 {
		t.Fatal("event never written")
	}

	var e events.Event
	if err := json.Unmarshal(data[:len(data)-1], &e); err != nil {
		t.Fatalf("unmarshal logged event: %v", err)
	}
	if e.Type != events.EventUserMessage || e.ConversationID != "conv-1" {
		t.Errorf("unexpected logged event: %+v", e)
	}
}
