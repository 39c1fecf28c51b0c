package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackfillCmd creates the summary backfill command
func NewBackfillCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Generate summaries for items that lack one",
		Long: `Select items whose summary is missing or whose last summarization
attempt failed, and run the provider chain for each. Failed attempts
are recorded and retried on a later pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum items to summarize (default from config)")
	return cmd
}

func runBackfill(ctx context.Context, limit int) error {
	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	if limit <= 0 {
		limit = p.cfg.Backfill.MaxBatch
	}

	updated, err := p.backfiller.Run(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Printf("Summarized %d items\n", updated)
	return nil
}
