package memory

import (
	"context"
	"log/slog"

	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/source"
)

// AuditSink persists the audit records of a consolidation pass.
type AuditSink interface {
	SaveAudit(ctx context.Context, sourceID string, entries []AuditEntry) error
}

// ConsolidatorConfig wires a Consolidator.
type ConsolidatorConfig struct {
	Extractor *Extractor
	Resolver  *Resolver
	Planner   *Planner
	Mutator   *Mutator
	Bus       *events.Bus // optional
	Audit     AuditSink   // optional
}

// Consolidator runs full reconciliation passes: extract candidates, resolve
// neighborhoods, plan decisions, apply mutations. Failures inside a pass are
// contained to that pass and never reach the live conversation.
type Consolidator struct {
	extractor *Extractor
	resolver  *Resolver
	planner   *Planner
	mutator   *Mutator
	bus       *events.Bus
	audit     AuditSink
}

// NewConsolidator creates a Consolidator.
func NewConsolidator(cfg ConsolidatorConfig) *Consolidator {
	return &Consolidator{
		extractor: cfg.Extractor,
		resolver:  cfg.Resolver,
		planner:   cfg.Planner,
		mutator:   cfg.Mutator,
		bus:       cfg.Bus,
		audit:     cfg.Audit,
	}
}

// RunPass consolidates one batch of turns from sourceID and returns the
// audit list. An empty audit list is a valid outcome: passes are allowed to
// be silent no-ops.
func (c *Consolidator) RunPass(ctx context.Context, sourceID string, turns []source.Turn) ([]AuditEntry, error) {
	if len(turns) == 0 {
		return nil, nil
	}

	candidates := c.extractor.Extract(ctx, turns)
	if len(candidates) == 0 {
		slog.Debug("consolidation pass yielded no candidates", "source", sourceID, "turns", len(turns))
		return nil, nil
	}

	refs, err := c.resolver.Resolve(ctx, candidates)
	if err != nil {
		// Without neighborhoods the planner would re-add known facts, so
		// the pass stops before any mutation.
		slog.Warn("neighborhood resolution failed, skipping pass", "source", sourceID, "error", err)
		return nil, err
	}

	decisions := c.planner.Plan(ctx, candidates, refs)
	if len(decisions) == 0 {
		return nil, nil
	}

	prov := Provenance{SourceID: sourceID}
	if len(candidates) > 0 {
		prov.UserID = candidates[0].UserID
	}

	entries := c.mutator.Apply(ctx, decisions, refs, prov)

	if len(entries) > 0 {
		if c.audit != nil {
			if err := c.audit.SaveAudit(ctx, sourceID, entries); err != nil {
				slog.Warn("audit save failed", "source", sourceID, "error", err)
			}
		}
		if c.bus != nil {
			c.bus.Publish(events.NewEvent(events.EventMemoryUpdated, events.SourceMemory, map[string]any{
				"source_id": sourceID,
				"mutations": len(entries),
			}))
		}
	}

	slog.Info("consolidation pass complete",
		"source", sourceID,
		"turns", len(turns),
		"candidates", len(candidates),
		"decisions", len(decisions),
		"mutations", len(entries))

	return entries, nil
}
