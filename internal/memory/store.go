package memory

import "context"

// SearchHit is one nearest-neighbor result, most similar first.
type SearchHit struct {
	Fact       Fact    `json:"fact"`
	Similarity float32 `json:"similarity"`
}

// Index is the vector-store boundary. Each operation is individually atomic;
// no cross-entry transaction exists, so callers must tolerate a pass that
// partially applies.
type Index interface {
	Insert(ctx context.Context, f Fact) (string, error)
	Update(ctx context.Context, f Fact) error
	Delete(ctx context.Context, id string) error
	// Search ranks existing facts against a precomputed embedding.
	Search(ctx context.Context, vector []float64, limit int) ([]SearchHit, error)
	// SearchText embeds the query itself, for ad-hoc lookups.
	SearchText(ctx context.Context, query string, limit int) ([]SearchHit, error)
	Count() int
}

// Completer asks a model for a single text completion.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
