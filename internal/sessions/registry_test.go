package sessions

import (
	"fmt"
	"testing"
	"time"
)

func newTestRegistry(limit int, idle time.Duration) (*Registry, *time.Time) {
	r := NewRegistry(limit, idle)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestRegistryWindowEviction(t *testing.T) {
	r, _ := newTestRegistry(10, 5*time.Minute)

	for i := 0; i < 12; i++ {
		r.Append("conv", Message{Role: "user", Content: fmt.Sprintf("m%d", i)})
	}

	history := r.History("conv")
	if len(history) != 10 {
		t.Fatalf("expected window of 10, got %d", len(history))
	}
	if history[0].Content != "m2" {
		t.Errorf("expected oldest entry m2, got %q", history[0].Content)
	}
	if history[9].Content != "m11" {
		t.Errorf("expected newest entry m11, got %q", history[9].Content)
	}
}

func TestRegistryIdleReset(t *testing.T) {
	r, now := newTestRegistry(10, 5*time.Minute)

	r.Append("conv", Message{Role: "user", Content: "hello"})
	if got := r.StateOf("conv"); got != StateActive {
		t.Errorf("expected active, got %q", got)
	}

	*now = now.Add(5 * time.Minute)
	if got := r.StateOf("conv"); got != StateStale {
		t.Errorf("expected stale after idle timeout, got %q", got)
	}
	if history := r.History("conv"); len(history) != 0 {
		t.Errorf("stale session should read empty, got %d entries", len(history))
	}

	r.Append("conv", Message{Role: "user", Content: "back"})
	history := r.History("conv")
	if len(history) != 1 || history[0].Content != "back" {
		t.Errorf("expected fresh window with 1 entry, got %v", history)
	}
}

func TestRegistryActivityExtendsWindow(t *testing.T) {
	r, now := newTestRegistry(10, 5*time.Minute)

	r.Append("conv", Message{Role: "user", Content: "a"})
	*now = now.Add(4 * time.Minute)
	r.Append("conv", Message{Role: "assistant", Content: "b"})
	*now = now.Add(4 * time.Minute)

	// 8 minutes since the first entry, but only 4 since the last.
	if got := r.StateOf("conv"); got != StateActive {
		t.Errorf("expected active, got %q", got)
	}
	if history := r.History("conv"); len(history) != 2 {
		t.Errorf("expected both entries retained, got %d", len(history))
	}
}

func TestRegistryFreshState(t *testing.T) {
	r, _ := newTestRegistry(10, 5*time.Minute)
	if got := r.StateOf("unknown"); got != StateFresh {
		t.Errorf("expected fresh for unknown conversation, got %q", got)
	}
}

func TestRegistryClear(t *testing.T) {
	r, _ := newTestRegistry(10, 5*time.Minute)
	r.Append("conv", Message{Role: "user", Content: "a"})
	r.Clear("conv")

	if got := r.StateOf("conv"); got != StateFresh {
		t.Errorf("expected fresh after clear, got %q", got)
	}
	if history := r.History("conv"); len(history) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(history))
	}
}

func TestRegistryIsolation(t *testing.T) {
	r, _ := newTestRegistry(10, 5*time.Minute)
	r.Append("a", Message{Role: "user", Content: "for a"})
	r.Append("b", Message{Role: "user", Content: "for b"})

	if history := r.History("a"); len(history) != 1 || history[0].Content != "for a" {
		t.Errorf("conversation a polluted: %v", history)
	}

	ids := r.Conversations()
	if len(ids) != 2 {
		t.Errorf("expected 2 live conversations, got %d", len(ids))
	}
}

func TestRegistryHistoryCopy(t *testing.T) {
	r, _ := newTestRegistry(10, 5*time.Minute)
	r.Append("conv", Message{Role: "user", Content: "original"})

	history := r.History("conv")
	history[0].Content = "mutated"

	if got := r.History("conv")[0].Content; got != "original" {
		t.Errorf("History leaked internal state: %q", got)
	}
}
