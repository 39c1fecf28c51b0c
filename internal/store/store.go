// Package store persists ingested items. Two backends are available:
// an embedded SQLite database for single-node deployments and Postgres
// for shared ones. Items are keyed by fingerprint and are never deleted
// by the pipeline.
package store

import (
	"context"
	"fmt"

	"helder/internal/core"
)

// Store is the item persistence interface.
type Store interface {
	// Exists reports whether an item with the fingerprint is stored.
	Exists(ctx context.Context, fingerprint string) (bool, error)

	// Upsert inserts the item or refreshes its feed-derived fields. An
	// existing row keeps its categories, classification provenance,
	// summary and creation time untouched.
	Upsert(ctx context.Context, item core.Item) error

	// MissingSummary returns up to limit items whose summary is absent or
	// whose last summarization attempt failed, newest first.
	MissingSummary(ctx context.Context, limit int) ([]core.Item, error)

	// UpdateSummary records a summary and its provenance for the item.
	UpdateSummary(ctx context.Context, fingerprint, summary, provider string) error

	// UpdateCategories overwrites the categories and classification
	// provenance of an existing item. Used by explicit recategorization
	// only; the ingest path never reclassifies.
	UpdateCategories(ctx context.Context, fingerprint string, categories []string, provider string) error

	// Items returns up to limit stored items, newest first.
	Items(ctx context.Context, limit int) ([]core.Item, error)

	// Stats summarizes the store contents.
	Stats(ctx context.Context) (core.StoreStats, error)

	// Close releases the underlying database handle.
	Close() error
}

// Open creates a store for the configured driver. The sqlite driver
// places its database file under dataDir unless dsn points elsewhere.
func Open(driver, dsn, dataDir string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLiteStore(dataDir, dsn)
	case "postgres":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: sqlite, postgres)", driver)
	}
}
