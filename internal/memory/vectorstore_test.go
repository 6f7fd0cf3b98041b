package memory

import (
	"context"
	"testing"
	"time"
)

func TestVectorStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	vs, err := NewVectorStore(dir, hashEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}

	ctx := context.Background()
	id, err := vs.Insert(ctx, Fact{
		Text:     "Alice lives in Lyon",
		Topic:    "location",
		UserID:   "alice",
		SourceID: "general",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated fact id")
	}
	if vs.Count() != 1 {
		t.Errorf("Count: got %d, want 1", vs.Count())
	}

	hits, err := vs.SearchText(ctx, "Alice lives in Lyon", 5)
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(hits) != 1 || hits[0].Fact.ID != id {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	f := hits[0].Fact
	if f.Topic != "location" || f.UserID != "alice" || f.SourceID != "general" {
		t.Errorf("metadata lost on round trip: %+v", f)
	}
	if f.CreatedAt.IsZero() || f.UpdatedAt.IsZero() {
		t.Errorf("timestamps not set: %+v", f)
	}
}

func TestVectorStoreUpdateReplacesInPlace(t *testing.T) {
	vs, err := NewVectorStore(t.TempDir(), hashEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}

	ctx := context.Background()
	id, err := vs.Insert(ctx, Fact{Text: "The sun is a star", UserID: "alice"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	updated := Fact{ID: id, Text: "The sun is a yellow dwarf star", UserID: "alice", CreatedAt: time.Now()}
	if err := vs.Update(ctx, updated); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if vs.Count() != 1 {
		t.Errorf("update must not grow the store: count=%d", vs.Count())
	}
	facts := vs.List()
	if len(facts) != 1 || facts[0].Text != "The sun is a yellow dwarf star" {
		t.Errorf("unexpected facts after update: %+v", facts)
	}
}

func TestVectorStoreDelete(t *testing.T) {
	vs, err := NewVectorStore(t.TempDir(), hashEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}

	ctx := context.Background()
	id, _ := vs.Insert(ctx, Fact{Text: "Dinosaurs are still alive"})
	if err := vs.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if vs.Count() != 0 {
		t.Errorf("Count after delete: got %d, want 0", vs.Count())
	}
	if facts := vs.List(); len(facts) != 0 {
		t.Errorf("List after delete: %+v", facts)
	}
}

func TestVectorStoreListSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	vs, err := NewVectorStore(dir, hashEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	first, _ := vs.Insert(ctx, Fact{Text: "Alice lives in Lyon", CreatedAt: time.Now().Add(-time.Hour)})
	second, _ := vs.Insert(ctx, Fact{Text: "Bob plays the cello"})

	reopened, err := NewVectorStore(dir, hashEmbedder{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	facts := reopened.List()
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts after reopen, got %d", len(facts))
	}
	// Oldest first.
	if facts[0].ID != first || facts[1].ID != second {
		t.Errorf("unexpected order: %+v", facts)
	}
}

func TestVectorStoreSearchEmpty(t *testing.T) {
	vs, err := NewVectorStore(t.TempDir(), hashEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}

	hits, err := vs.SearchText(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("SearchText on empty store: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}
