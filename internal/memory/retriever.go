package memory

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
)

// Retriever fetches the stored facts most relevant to a chat query, for
// injection into the request prompt.
type Retriever struct {
	embedder embedding.Embedder
	index    Index
	limit    int
}

// NewRetriever creates a Retriever. limit caps the number of facts returned
// per query (default 8).
func NewRetriever(embedder embedding.Embedder, index Index, limit int) *Retriever {
	if limit <= 0 {
		limit = 8
	}
	return &Retriever{embedder: embedder, index: index, limit: limit}
}

// Retrieve returns up to limit facts nearest the query, most similar first.
// An empty store yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Fact, error) {
	vectors, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embed query: empty result")
	}

	hits, err := r.index.Search(ctx, vectors[0], r.limit)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}

	facts := make([]Fact, len(hits))
	for i, h := range hits {
		facts[i] = h.Fact
	}
	return facts, nil
}
