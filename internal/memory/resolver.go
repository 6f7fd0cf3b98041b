package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
)

// Resolver finds the nearest existing facts for each candidate. Candidates
// are resolved concurrently and the results merged into one deduplicated,
// temp-id-labeled RefSet for the pass.
type Resolver struct {
	embedder embedding.Embedder
	index    Index
	limit    int
}

// NewResolver creates a Resolver. limit caps the neighborhood size per
// candidate (default 5).
func NewResolver(embedder embedding.Embedder, index Index, limit int) *Resolver {
	if limit <= 0 {
		limit = 5
	}
	return &Resolver{embedder: embedder, index: index, limit: limit}
}

// Resolve embeds every candidate once, queries the index concurrently, and
// assembles the pass-wide RefSet. A fact referenced by two candidates'
// neighborhoods gets exactly one temp id.
func (r *Resolver) Resolve(ctx context.Context, candidates []Candidate) (*RefSet, error) {
	if len(candidates) == 0 {
		return &RefSet{}, nil
	}

	neighborhoods := make([][]SearchHit, len(candidates))
	errs := make([]error, len(candidates))

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c Candidate) {
			defer wg.Done()
			hits, err := r.resolveOne(ctx, c)
			if err != nil {
				errs[i] = err
				return
			}
			neighborhoods[i] = hits
		}(i, c)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("resolve candidate %d: %w", i, err)
		}
	}

	// Merge in candidate order so temp ids are deterministic for the pass.
	refs := &RefSet{}
	seen := make(map[string]bool)
	for _, hits := range neighborhoods {
		for _, hit := range hits {
			if seen[hit.Fact.ID] {
				continue
			}
			seen[hit.Fact.ID] = true
			refs.facts = append(refs.facts, hit.Fact)
		}
	}
	return refs, nil
}

func (r *Resolver) resolveOne(ctx context.Context, c Candidate) ([]SearchHit, error) {
	vectors, err := r.embedder.EmbedStrings(ctx, []string{c.Text})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embed: empty result")
	}

	hits, err := r.index.Search(ctx, vectors[0], r.limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}
