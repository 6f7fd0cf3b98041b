package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
)

// scriptedCompleter returns canned responses in order and records prompts.
type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	systems   []string
}

func (c *scriptedCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	i := c.calls
	c.calls++
	c.systems = append(c.systems, system)
	c.prompts = append(c.prompts, prompt)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i >= len(c.responses) {
		return "", errors.New("no scripted response left")
	}
	return c.responses[i], nil
}

// hashEmbedder produces deterministic unit vectors, no network involved.
type hashEmbedder struct{}

func (hashEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v := make([]float64, 8)
		for j, r := range text {
			v[j%8] += float64(r%13) + 1
		}
		var norm float64
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for j := range v {
			v[j] /= norm
		}
		out[i] = v
	}
	return out, nil
}

// stubIndex is an in-memory Index with scriptable failures.
type stubIndex struct {
	mu        sync.Mutex
	facts     map[string]Fact
	nextID    int
	hits      []SearchHit // returned by every Search call
	searchErr error
	insertErr error
	updateErr error
	deleteErr error
	inserted  []Fact
	updated   []Fact
	deleted   []string
}

func newStubIndex() *stubIndex {
	return &stubIndex{facts: make(map[string]Fact)}
}

func (s *stubIndex) Insert(_ context.Context, f Fact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return "", s.insertErr
	}
	if f.ID == "" {
		s.nextID++
		f.ID = fmt.Sprintf("fact_%d", s.nextID)
	}
	s.facts[f.ID] = f
	s.inserted = append(s.inserted, f)
	return f.ID, nil
}

func (s *stubIndex) Update(_ context.Context, f Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.facts[f.ID] = f
	s.updated = append(s.updated, f)
	return nil
}

func (s *stubIndex) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.facts, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubIndex) Search(context.Context, []float64, int) ([]SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits, nil
}

func (s *stubIndex) SearchText(context.Context, string, int) ([]SearchHit, error) {
	return s.Search(nil, nil, 0)
}

func (s *stubIndex) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.facts)
}
