package handlers

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"helder/internal/config"
	"helder/internal/store"
)

// NewStatsCmd creates the store statistics command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show item store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context())
		},
	}
}

func runStats(ctx context.Context) error {
	cfg := config.Get()

	// Stats only needs the store, not the provider chain.
	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.DSN, cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Items\t%d\n", stats.Items)
	fmt.Fprintf(w, "Missing summary\t%d\n", stats.MissingSummary)
	fmt.Fprintf(w, "Failed summary\t%d\n", stats.FailedSummary)
	return w.Flush()
}
