package memory

import (
	"context"
	"testing"
)

func TestRetrieveReturnsFactsInRankOrder(t *testing.T) {
	idx := newStubIndex()
	idx.hits = []SearchHit{
		{Fact: Fact{ID: "fact_a", Text: "Alice lives in Lyon"}, Similarity: 0.9},
		{Fact: Fact{ID: "fact_b", Text: "Alice works at a bakery"}, Similarity: 0.7},
	}
	r := NewRetriever(hashEmbedder{}, idx, 8)

	facts, err := r.Retrieve(context.Background(), "where does Alice live?")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(facts) != 2 || facts[0].ID != "fact_a" || facts[1].ID != "fact_b" {
		t.Errorf("unexpected facts: %+v", facts)
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	r := NewRetriever(hashEmbedder{}, newStubIndex(), 8)

	facts, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected no facts, got %+v", facts)
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	r := NewRetriever(failingEmbedder{}, newStubIndex(), 8)

	if _, err := r.Retrieve(context.Background(), "anything"); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}
