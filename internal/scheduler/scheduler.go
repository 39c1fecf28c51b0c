// Package scheduler runs the poll loop that drives ingestion and
// summary backfill at a fixed interval.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"helder/internal/logger"
)

// Ingester runs one ingestion pass. Satisfied by ingest.Coordinator.
type Ingester interface {
	Run(ctx context.Context) (int, error)
}

// Backfiller runs one summary backfill pass. Satisfied by
// ingest.Backfiller.
type Backfiller interface {
	Run(ctx context.Context, limit int) (int, error)
}

// Scheduler ticks at the poll interval and runs a full cycle on every
// tick: ingest, a short settle delay, then backfill. Cycles never
// overlap; a tick that arrives while a cycle is still running is
// skipped. The loop itself never exits on cycle errors, only on
// context cancellation.
type Scheduler struct {
	ingester    Ingester
	backfiller  Backfiller
	interval    time.Duration
	settleDelay time.Duration
	maxBatch    int

	running atomic.Bool
	cycles  atomic.Int64
	skipped atomic.Int64
}

// Options configures a Scheduler.
type Options struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	MaxBatch     int
}

// New creates a scheduler.
func New(ingester Ingester, backfiller Backfiller, opts Options) *Scheduler {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	maxBatch := opts.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 10
	}
	return &Scheduler{
		ingester:    ingester,
		backfiller:  backfiller,
		interval:    interval,
		settleDelay: opts.SettleDelay,
		maxBatch:    maxBatch,
	}
}

// Run starts the loop. The first cycle runs immediately; afterwards one
// cycle runs per tick. Run blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("Scheduler started", "interval", s.interval.String())

	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler stopped", "cycles", s.cycles.Load(), "skipped_ticks", s.skipped.Load())
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
			// Drop any tick that fired while the cycle ran so a slow
			// cycle is not followed by an immediate second one.
			select {
			case <-ticker.C:
				s.skipped.Add(1)
			default:
			}
		}
	}
}

// cycle runs one ingest-then-backfill pass. It is guarded against
// overlap and against panics escaping into the loop.
func (s *Scheduler) cycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		logger.Warn("Skipping cycle, previous cycle still running")
		return
	}
	defer s.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Cycle panicked", nil, "panic", r)
		}
	}()

	s.cycles.Add(1)
	start := time.Now()

	inserted, err := s.ingester.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("Ingestion cycle failed", err)
	}

	if s.settleDelay > 0 {
		select {
		case <-time.After(s.settleDelay):
		case <-ctx.Done():
			return
		}
	}

	// Busy cycles backfill what they just inserted, capped; quiet cycles
	// still sweep a full batch so an old backlog keeps draining.
	batch := inserted
	if batch == 0 || batch > s.maxBatch {
		batch = s.maxBatch
	}

	summarized, err := s.backfiller.Run(ctx, batch)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("Backfill cycle failed", err)
	}

	logger.Info("Cycle complete",
		"inserted", inserted,
		"summarized", summarized,
		"duration", time.Since(start).String())
}
