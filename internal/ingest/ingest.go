// Package ingest drives the poll cycle: fetch feeds, drop entries that
// were seen before, classify new ones exactly once and store them.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"helder/internal/core"
	"helder/internal/feeds"
	"helder/internal/fingerprint"
	"helder/internal/logger"
	"helder/internal/store"
)

// Fetcher retrieves a parsed feed. Satisfied by feeds.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (*feeds.ParsedFeed, error)
}

// Classifier labels a feed entry. Satisfied by classify.Classifier.
type Classifier interface {
	Classify(ctx context.Context, entry core.FeedEntry) ([]string, string)
}

// Coordinator runs one ingestion pass over the configured feeds.
//
// The cost control invariant lives here: an entry's fingerprint is
// checked against the store BEFORE any model is asked to classify it,
// so re-seen entries never spend an attempt. A positive-existence memo
// in front of the store saves the lookup for fingerprints this process
// already confirmed; it can never go stale because items are never
// deleted.
type Coordinator struct {
	fetcher    Fetcher
	classifier Classifier
	store      store.Store
	feedURLs   []string
	seen       *cache.Cache
}

// NewCoordinator creates an ingestion coordinator.
func NewCoordinator(fetcher Fetcher, classifier Classifier, st store.Store, feedURLs []string) *Coordinator {
	return &Coordinator{
		fetcher:    fetcher,
		classifier: classifier,
		store:      st,
		feedURLs:   feedURLs,
		seen:       cache.New(24*time.Hour, 10*time.Minute),
	}
}

// Run ingests all configured feeds once and returns the number of newly
// stored items. A failing feed is logged and skipped; an error is
// returned only when every feed failed or the context ended.
func (c *Coordinator) Run(ctx context.Context) (int, error) {
	inserted := 0
	failedFeeds := 0

	for _, feedURL := range c.feedURLs {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		count, err := c.ingestFeed(ctx, feedURL)
		if err != nil {
			failedFeeds++
			logger.Error("Feed ingestion failed", err, "feed", feedURL)
			continue
		}
		inserted += count
	}

	if failedFeeds == len(c.feedURLs) && len(c.feedURLs) > 0 {
		return inserted, fmt.Errorf("all %d feeds failed", failedFeeds)
	}

	logger.Info("Ingestion pass complete", "inserted", inserted, "feeds", len(c.feedURLs), "failed_feeds", failedFeeds)
	return inserted, nil
}

// ingestFeed processes a single feed.
func (c *Coordinator) ingestFeed(ctx context.Context, feedURL string) (int, error) {
	parsed, err := c.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return 0, err
	}
	if parsed.NotModified {
		logger.Debug("Feed not modified", "feed", feedURL)
		return 0, nil
	}

	inserted := 0
	for _, entry := range parsed.Entries {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		if entry.Link == "" {
			continue
		}

		ok, err := c.ingestEntry(ctx, feedURL, entry)
		if err != nil {
			logger.Error("Failed to store entry", err, "link", entry.Link)
			continue
		}
		if ok {
			inserted++
		}
	}

	return inserted, nil
}

// ingestEntry stores one entry unless it was seen before. It reports
// whether a new item was inserted.
func (c *Coordinator) ingestEntry(ctx context.Context, feedURL string, entry core.FeedEntry) (bool, error) {
	fp := fingerprint.New(entry.Link, entry.PublishedAt)

	if _, known := c.seen.Get(fp); known {
		return false, nil
	}

	exists, err := c.store.Exists(ctx, fp)
	if err != nil {
		return false, err
	}
	if exists {
		c.seen.SetDefault(fp, true)
		return false, nil
	}

	// First sight: classify exactly once, before storing.
	categories, provider := c.classifier.Classify(ctx, entry)

	item := core.Item{
		Fingerprint:            fp,
		Title:                  entry.Title,
		Description:            entry.Description,
		Body:                   entry.Body,
		Link:                   entry.Link,
		PublishedAt:            entry.PublishedAt,
		ImageURL:               entry.ImageURL,
		SourceFeedURL:          feedURL,
		Categories:             categories,
		ClassificationProvider: provider,
	}

	if err := c.store.Upsert(ctx, item); err != nil {
		return false, err
	}

	c.seen.SetDefault(fp, true)
	logger.Debug("Stored new item", "fingerprint", fp, "categories", categories, "provider", provider)
	return true, nil
}
