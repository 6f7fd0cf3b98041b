package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// catalog is a JSON sidecar mapping fact ID to Fact, kept because the vector
// collection cannot enumerate its documents. Writes go through a temp file +
// rename.
type catalog struct {
	mu    sync.Mutex
	path  string
	facts map[string]Fact
}

func openCatalog(dir string) (*catalog, error) {
	c := &catalog{
		path:  filepath.Join(dir, "catalog.json"),
		facts: make(map[string]Fact),
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := json.Unmarshal(data, &c.facts); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return c, nil
}

func (c *catalog) put(f Fact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facts[f.ID] = f
	return c.save()
}

func (c *catalog) remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.facts, id)
	return c.save()
}

func (c *catalog) list() []Fact {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Fact, 0, len(c.facts))
	for _, f := range c.facts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// save writes the catalog atomically. Callers hold c.mu.
func (c *catalog) save() error {
	data, err := json.MarshalIndent(c.facts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog tmp: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename catalog: %w", err)
	}
	return nil
}
