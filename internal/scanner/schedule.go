package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule drives the scan cycle and the periodic seen-set clear.
type Schedule struct {
	cron      *cron.Cron
	scanner   *Scanner
	interval  time.Duration
	clearEach time.Duration
}

// NewSchedule creates a Schedule. interval is the scan period (default 10m),
// clearEach the seen-set clear period (default 30m).
func NewSchedule(s *Scanner, interval, clearEach time.Duration) *Schedule {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if clearEach <= 0 {
		clearEach = 30 * time.Minute
	}
	return &Schedule{
		cron:      cron.New(),
		scanner:   s,
		interval:  interval,
		clearEach: clearEach,
	}
}

// Start registers the jobs and starts the cron loop.
func (sc *Schedule) Start(ctx context.Context) error {
	if _, err := sc.cron.AddFunc(fmt.Sprintf("@every %s", sc.interval), func() {
		sc.scanner.RunScanCycle(ctx)
	}); err != nil {
		return fmt.Errorf("schedule scan cycle: %w", err)
	}
	if _, err := sc.cron.AddFunc(fmt.Sprintf("@every %s", sc.clearEach), func() {
		sc.scanner.ClearSeen()
	}); err != nil {
		return fmt.Errorf("schedule seen clear: %w", err)
	}

	sc.cron.Start()
	slog.Info("scan schedule started", "interval", sc.interval, "seen_clear", sc.clearEach)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (sc *Schedule) Stop() {
	<-sc.cron.Stop().Done()
}
