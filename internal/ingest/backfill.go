package ingest

import (
	"context"

	"helder/internal/core"
	"helder/internal/logger"
	"helder/internal/store"
	"helder/internal/summarize"
)

// Summarizer produces a summary for an item. Satisfied by
// summarize.Summarizer.
type Summarizer interface {
	Summarize(ctx context.Context, item core.Item) (string, string)
}

// Backfiller fills in summaries for items that do not have one yet,
// including items whose earlier summarization attempt failed.
type Backfiller struct {
	store      store.Store
	summarizer Summarizer
}

// NewBackfiller creates a summary backfiller.
func NewBackfiller(st store.Store, summarizer Summarizer) *Backfiller {
	return &Backfiller{store: st, summarizer: summarizer}
}

// Run summarizes up to limit pending items and returns how many got a
// usable summary. A failed attempt is recorded with its sentinel so the
// item is retried on a later pass; a storage error on one item does not
// stop the batch.
func (b *Backfiller) Run(ctx context.Context, limit int) (int, error) {
	items, err := b.store.MissingSummary(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	updated := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		summary, provider := b.summarizer.Summarize(ctx, item)
		if err := b.store.UpdateSummary(ctx, item.Fingerprint, summary, provider); err != nil {
			logger.Error("Failed to store summary", err, "fingerprint", item.Fingerprint)
			continue
		}
		if provider != summarize.FailedProvider {
			updated++
		}
	}

	logger.Info("Backfill pass complete", "candidates", len(items), "summarized", updated)
	return updated, nil
}
