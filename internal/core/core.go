// Package core defines the shared data types of the ingestion pipeline.
package core

import "time"

// Item represents one ingested news entry and its annotations.
type Item struct {
	Fingerprint   string    `json:"fingerprint"`     // Stable identity derived from link + published time; never regenerated
	Title         string    `json:"title"`           // Entry title
	Description   string    `json:"description"`     // Short description from the feed
	Body          string    `json:"body"`            // Full content, when the feed carries it
	Link          string    `json:"link"`            // Canonical article URL
	PublishedAt   time.Time `json:"published_at"`    // Publication time (zero value when the feed omits it)
	ImageURL      string    `json:"image_url"`       // Lead image, when present
	SourceFeedURL string    `json:"source_feed_url"` // Feed the entry was discovered in

	// Categories and ClassificationProvider are set together, once, when the
	// item is first seen. They are never recomputed for a stored item.
	Categories             []string `json:"categories"`
	ClassificationProvider string   `json:"classification_provider"`

	// Summary fields are filled in asynchronously by the backfill pass.
	// An empty SummaryProvider means summarization was never attempted.
	Summary         string `json:"summary"`
	SummaryProvider string `json:"summary_provider"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedEntry is a raw entry as retrieved from a feed source, before
// deduplication and enrichment.
type FeedEntry struct {
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"` // Zero value when the feed omits it
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	ImageURL    string    `json:"image_url"`
}

// StoreStats summarizes the contents of the item store.
type StoreStats struct {
	Items          int `json:"items"`
	MissingSummary int `json:"missing_summary"`
	FailedSummary  int `json:"failed_summary"`
}
