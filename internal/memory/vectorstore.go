package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "mnemo_facts"

// VectorStore wraps chromem-go for persistent fact storage. It satisfies
// Index. A JSON catalog alongside the vector files backs enumeration, which
// chromem does not offer.
type VectorStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	catalog    *catalog
}

// NewVectorStore creates a persistent vector store in the given directory.
// The embedder is bridged from Eino's [][]float64 to chromem-go's []float32.
func NewVectorStore(dir string, embedder embedding.Embedder) (*VectorStore, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, bridgeEmbedder(embedder))
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}

	cat, err := openCatalog(dir)
	if err != nil {
		return nil, fmt.Errorf("open fact catalog: %w", err)
	}

	return &VectorStore{db: db, collection: col, catalog: cat}, nil
}

// Insert stores a new fact and returns its assigned ID.
func (vs *VectorStore) Insert(ctx context.Context, f Fact) (string, error) {
	if f.ID == "" {
		f.ID = generateFactID()
	}
	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	if err := vs.collection.AddDocument(ctx, toDocument(f)); err != nil {
		return "", fmt.Errorf("insert fact: %w", err)
	}
	if err := vs.catalog.put(f); err != nil {
		return "", fmt.Errorf("catalog fact %s: %w", f.ID, err)
	}
	return f.ID, nil
}

// Update replaces a fact's text and metadata in place. chromem's AddDocument
// overwrites an existing ID.
func (vs *VectorStore) Update(ctx context.Context, f Fact) error {
	f.UpdatedAt = time.Now()
	if err := vs.collection.AddDocument(ctx, toDocument(f)); err != nil {
		return fmt.Errorf("update fact %s: %w", f.ID, err)
	}
	if err := vs.catalog.put(f); err != nil {
		return fmt.Errorf("catalog fact %s: %w", f.ID, err)
	}
	return nil
}

// Delete removes a fact from the store.
func (vs *VectorStore) Delete(ctx context.Context, id string) error {
	if err := vs.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete fact %s: %w", id, err)
	}
	if err := vs.catalog.remove(id); err != nil {
		return fmt.Errorf("uncatalog fact %s: %w", id, err)
	}
	return nil
}

// Search ranks stored facts against a precomputed embedding, most similar
// first.
func (vs *VectorStore) Search(ctx context.Context, vector []float64, limit int) ([]SearchHit, error) {
	limit = vs.clampLimit(limit)
	if limit == 0 {
		return nil, nil
	}

	results, err := vs.collection.QueryEmbedding(ctx, toFloat32(vector), limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return toHits(results), nil
}

// SearchText embeds the query via the collection's embedder and ranks
// stored facts against it.
func (vs *VectorStore) SearchText(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	limit = vs.clampLimit(limit)
	if limit == 0 {
		return nil, nil
	}

	results, err := vs.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("text query: %w", err)
	}
	return toHits(results), nil
}

// Count returns the number of stored facts.
func (vs *VectorStore) Count() int {
	return vs.collection.Count()
}

// List returns every stored fact, oldest first.
func (vs *VectorStore) List() []Fact {
	return vs.catalog.list()
}

func (vs *VectorStore) clampLimit(limit int) int {
	count := vs.collection.Count()
	if limit > count {
		limit = count
	}
	return limit
}

func toDocument(f Fact) chromem.Document {
	return chromem.Document{
		ID:      f.ID,
		Content: f.Text,
		Metadata: map[string]string{
			"topic":      f.Topic,
			"user_id":    f.UserID,
			"source_id":  f.SourceID,
			"created_at": f.CreatedAt.Format(time.RFC3339),
			"updated_at": f.UpdatedAt.Format(time.RFC3339),
		},
	}
}

func fromResult(r chromem.Result) Fact {
	f := Fact{
		ID:       r.ID,
		Text:     r.Content,
		Topic:    r.Metadata["topic"],
		UserID:   r.Metadata["user_id"],
		SourceID: r.Metadata["source_id"],
	}
	if t, err := time.Parse(time.RFC3339, r.Metadata["created_at"]); err == nil {
		f.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, r.Metadata["updated_at"]); err == nil {
		f.UpdatedAt = t
	}
	return f
}

func toHits(results []chromem.Result) []SearchHit {
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{Fact: fromResult(r), Similarity: r.Similarity}
	}
	return hits
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// bridgeEmbedder converts an Eino Embedder ([][]float64) to a chromem-go
// EmbeddingFunc ([]float32).
func bridgeEmbedder(embedder embedding.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.EmbedStrings(ctx, []string{text})
		if err != nil {
			return nil, fmt.Errorf("embed text: %w", err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return nil, fmt.Errorf("embed text: empty result")
		}
		return toFloat32(vectors[0]), nil
	}
}

var _ Index = (*VectorStore)(nil)
