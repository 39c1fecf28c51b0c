package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewIngestCmd creates the one-shot ingestion command
func NewIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch all configured feeds once",
		Long: `Fetch the configured feeds a single time, classify entries that
were not seen before and store them. Entries already in the store are
skipped without spending a model attempt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context())
		},
	}
}

func runIngest(ctx context.Context) error {
	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	inserted, err := p.coordinator.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d new items\n", inserted)
	return nil
}
