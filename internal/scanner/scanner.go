// Package scanner polls monitored sources and feeds fresh turns into memory
// consolidation.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/source"
)

// State is a source's position in the scan cycle.
type State string

const (
	StateIdle          State = "idle"
	StateScanning      State = "scanning"
	StateConsolidating State = "consolidating"
	StateNotifying     State = "notifying"
)

// PassRunner consolidates one batch of turns. Implemented by
// memory.Consolidator.
type PassRunner interface {
	RunPass(ctx context.Context, sourceID string, turns []source.Turn) ([]memory.AuditEntry, error)
}

// Config wires a Scanner.
type Config struct {
	Source        source.Source
	Runner        PassRunner
	Bus           *events.Bus // optional
	Sources       []string    // initial watch list
	Lookback      time.Duration
	CommandPrefix string
	Announce      bool // post a BOT: summary to the source after mutations
}

// Scanner owns the watch list, the seen-turn set, and the per-source scan
// state machine. Passes for distinct sources may overlap; passes for the
// same source never do — a trigger landing while one runs is coalesced into
// it.
type Scanner struct {
	src           source.Source
	runner        PassRunner
	bus           *events.Bus
	lookback      time.Duration
	commandPrefix string
	announce      bool

	mu      sync.Mutex
	watched map[string]bool
	states  map[string]State
	seen    map[string]bool
	now     func() time.Time
}

// New creates a Scanner.
func New(cfg Config) *Scanner {
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 5 * time.Minute
	}
	s := &Scanner{
		src:           cfg.Source,
		runner:        cfg.Runner,
		bus:           cfg.Bus,
		lookback:      lookback,
		commandPrefix: cfg.CommandPrefix,
		announce:      cfg.Announce,
		watched:       make(map[string]bool),
		states:        make(map[string]State),
		seen:          make(map[string]bool),
		now:           time.Now,
	}
	for _, id := range cfg.Sources {
		s.watched[id] = true
	}
	return s
}

// Watch adds a source to the watch list.
func (s *Scanner) Watch(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[sourceID] = true
}

// Unwatch removes a source from the watch list.
func (s *Scanner) Unwatch(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watched, sourceID)
}

// Watched returns the current watch list.
func (s *Scanner) Watched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.watched))
	for id := range s.watched {
		ids = append(ids, id)
	}
	return ids
}

// StateOf reports a source's current scan state.
func (s *Scanner) StateOf(sourceID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[sourceID]; ok {
		return st
	}
	return StateIdle
}

// RunScanCycle scans every watched source once. Sources run concurrently;
// a source already mid-pass is skipped, its in-flight pass covers this tick.
func (s *Scanner) RunScanCycle(ctx context.Context) {
	ids := s.Watched()
	if len(ids) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.scanSource(ctx, id); err != nil {
				slog.Warn("scan failed", "source", id, "error", err)
			}
		}(id)
	}
	wg.Wait()
}

// ConsolidateNow triggers an immediate pass for one source, watched or not.
// Returns without error when a pass for the source is already in flight.
func (s *Scanner) ConsolidateNow(ctx context.Context, sourceID string) error {
	return s.scanSource(ctx, sourceID)
}

// ClearSeen forgets which turns were already considered, letting the next
// pass re-read the full lookback window.
func (s *Scanner) ClearSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]bool)
	slog.Debug("seen-turn set cleared")
}

// begin claims the pass for sourceID. Returns false when one is in flight.
func (s *Scanner) begin(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[sourceID]; ok && st != StateIdle {
		return false
	}
	s.states[sourceID] = StateScanning
	return true
}

func (s *Scanner) setState(sourceID string, st State) {
	s.mu.Lock()
	s.states[sourceID] = st
	s.mu.Unlock()
}

func (s *Scanner) scanSource(ctx context.Context, sourceID string) error {
	if !s.begin(sourceID) {
		slog.Debug("scan already in flight, coalescing", "source", sourceID)
		return nil
	}
	defer s.setState(sourceID, StateIdle)

	s.publish(events.EventScanStarted, map[string]any{"source_id": sourceID})

	since := s.now().Add(-s.lookback)
	turns, err := s.src.History(ctx, sourceID, since)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	var fresh []source.Turn
	s.mu.Lock()
	for _, t := range turns {
		if s.seen[t.ID] {
			continue
		}
		if s.eligible(t) {
			fresh = append(fresh, t)
		}
	}
	s.mu.Unlock()

	var entries []memory.AuditEntry
	var passErr error
	if len(fresh) > 0 {
		s.setState(sourceID, StateConsolidating)
		entries, passErr = s.runner.RunPass(ctx, sourceID, fresh)
	}

	// Everything considered is seen now, whether the pass used it or not.
	s.mu.Lock()
	for _, t := range turns {
		s.seen[t.ID] = true
	}
	s.mu.Unlock()

	s.setState(sourceID, StateNotifying)
	s.publish(events.EventScanCompleted, map[string]any{
		"source_id": sourceID,
		"turns":     len(fresh),
		"mutations": len(entries),
		"failed":    passErr != nil,
	})
	if s.announce && len(entries) > 0 {
		msg := fmt.Sprintf("BOT: memory updated (%d change(s))", len(entries))
		if err := s.src.Send(ctx, sourceID, msg); err != nil {
			slog.Warn("announce failed", "source", sourceID, "error", err)
		}
	}

	if passErr != nil {
		return fmt.Errorf("consolidation pass: %w", passErr)
	}
	return nil
}

func (s *Scanner) publish(t events.EventType, payload map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewEvent(t, events.SourceScanner, payload))
}
