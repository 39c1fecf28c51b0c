package handlers

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"helder/internal/logger"
	"helder/internal/scheduler"
)

// NewRunCmd creates the scheduler daemon command
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the poll scheduler until interrupted",
		Long: `Run the background scheduler. Every poll interval it fetches the
configured feeds, stores and classifies new items, waits briefly and
then backfills summaries for items that do not have one yet.

The first cycle starts immediately. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd.Context())
		},
	}
}

func runScheduler(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	s := scheduler.New(p.coordinator, p.backfiller, scheduler.Options{
		PollInterval: p.cfg.Scheduler.PollIntervalDuration(),
		SettleDelay:  p.cfg.Scheduler.SettleDelayDuration(),
		MaxBatch:     p.cfg.Backfill.MaxBatch,
	})

	err = s.Run(ctx)

	for provider, usage := range p.chain.Usage() {
		logger.Info("Provider usage",
			"provider", provider,
			"calls", usage.Calls,
			"successes", usage.Successes,
			"failures", usage.Failures)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
