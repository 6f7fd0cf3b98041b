package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
)

func TestResolveEmptyCandidates(t *testing.T) {
	r := NewResolver(hashEmbedder{}, newStubIndex(), 5)

	refs, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if refs.Len() != 0 {
		t.Errorf("expected empty refset, got %d facts", refs.Len())
	}
}

func TestResolveDeduplicatesNeighborhoods(t *testing.T) {
	idx := newStubIndex()
	idx.hits = []SearchHit{
		{Fact: Fact{ID: "fact_a", Text: "Alice lives in Lyon"}, Similarity: 0.9},
		{Fact: Fact{ID: "fact_b", Text: "Bob plays the cello"}, Similarity: 0.4},
	}
	r := NewResolver(hashEmbedder{}, idx, 5)

	// Both candidates resolve to the same neighborhood; each fact must get
	// exactly one temp id.
	refs, err := r.Resolve(context.Background(), []Candidate{
		{Text: "Alice moved to Lyon"},
		{Text: "Alice is in Lyon now"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if refs.Len() != 2 {
		t.Fatalf("expected 2 deduplicated facts, got %d", refs.Len())
	}
	if f, ok := refs.Fact(0); !ok || f.ID != "fact_a" {
		t.Errorf("temp id 0: got %+v", f)
	}
	if f, ok := refs.Fact(1); !ok || f.ID != "fact_b" {
		t.Errorf("temp id 1: got %+v", f)
	}
	if _, ok := refs.Fact(2); ok {
		t.Error("temp id 2 should not exist")
	}
}

func TestResolveSearchErrorAbortsPass(t *testing.T) {
	idx := newStubIndex()
	idx.searchErr = errors.New("store offline")
	r := NewResolver(hashEmbedder{}, idx, 5)

	if _, err := r.Resolve(context.Background(), []Candidate{{Text: "x"}}); err == nil {
		t.Fatal("expected error when the index is unavailable")
	}
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedStrings(context.Context, []string, ...embedding.Option) ([][]float64, error) {
	return nil, errors.New("embedder offline")
}

func TestResolveEmbedErrorAbortsPass(t *testing.T) {
	r := NewResolver(failingEmbedder{}, newStubIndex(), 5)

	if _, err := r.Resolve(context.Background(), []Candidate{{Text: "x"}}); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}
