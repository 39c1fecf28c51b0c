package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"helder/internal/core"
	"helder/internal/logger"
)

// NewRecategorizeCmd creates the explicit reclassification command
func NewRecategorizeCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recategorize",
		Short: "Reclassify stored items",
		Long: `Run classification again over stored items and overwrite their
categories. The ingest path classifies an item only once; this command
is the deliberate exception, useful after a vocabulary change or to
upgrade items that were labeled by the keyword fallback.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecategorize(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum items to reclassify")
	return cmd
}

func runRecategorize(ctx context.Context, limit int) error {
	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	items, err := p.store.Items(ctx, limit)
	if err != nil {
		return err
	}

	updated := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry := core.FeedEntry{
			Link:        item.Link,
			Title:       item.Title,
			Description: item.Description,
			Body:        item.Body,
			PublishedAt: item.PublishedAt,
		}
		categories, provider := p.classifier.Classify(ctx, entry)

		if err := p.store.UpdateCategories(ctx, item.Fingerprint, categories, provider); err != nil {
			logger.Error("Failed to update categories", err, "fingerprint", item.Fingerprint)
			continue
		}
		updated++
	}

	fmt.Printf("Reclassified %d of %d items\n", updated, len(items))
	return nil
}
