package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"helder/internal/core"
	"helder/internal/summarize"
)

// SQLiteStore is the embedded item store.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and if needed creates) the SQLite database.
// When dbPath is empty the database lives under dataDir.
func NewSQLiteStore(dataDir, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "helder.db")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *SQLiteStore) initialize() error {
	itemsTable := `
	CREATE TABLE IF NOT EXISTS items (
		fingerprint TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		body TEXT,
		link TEXT,
		published_at DATETIME,
		image_url TEXT,
		source_feed_url TEXT,
		categories TEXT,
		classification_provider TEXT,
		summary TEXT,
		summary_provider TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`

	summaryIndex := `
	CREATE INDEX IF NOT EXISTS idx_items_summary_provider ON items (summary_provider);`

	for _, stmt := range []string{itemsTable, summaryIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Exists reports whether an item with the fingerprint is stored.
func (s *SQLiteStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM items WHERE fingerprint = ?", fingerprint).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check item existence: %w", err)
	}
	return true, nil
}

// Upsert inserts the item or refreshes its feed-derived fields.
func (s *SQLiteStore) Upsert(ctx context.Context, item core.Item) error {
	categories, err := json.Marshal(item.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	now := time.Now().UTC()
	query := `
	INSERT INTO items
	(fingerprint, title, description, body, link, published_at, image_url,
	 source_feed_url, categories, classification_provider, summary,
	 summary_provider, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(fingerprint) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		body = excluded.body,
		link = excluded.link,
		image_url = excluded.image_url,
		source_feed_url = excluded.source_feed_url,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		item.Fingerprint,
		item.Title,
		item.Description,
		item.Body,
		item.Link,
		nullTime(item.PublishedAt),
		item.ImageURL,
		item.SourceFeedURL,
		string(categories),
		item.ClassificationProvider,
		nullString(item.Summary),
		nullString(item.SummaryProvider),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

// MissingSummary returns items still waiting for a summary.
func (s *SQLiteStore) MissingSummary(ctx context.Context, limit int) ([]core.Item, error) {
	query := `
	SELECT fingerprint, title, description, body, link, published_at, image_url,
	       source_feed_url, categories, classification_provider, summary,
	       summary_provider, created_at, updated_at
	FROM items
	WHERE summary IS NULL OR summary_provider = ?
	ORDER BY created_at DESC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, summarize.FailedProvider, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items missing summary: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateSummary records a summary and its provenance for the item.
func (s *SQLiteStore) UpdateSummary(ctx context.Context, fingerprint, summary, provider string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE items SET summary = ?, summary_provider = ?, updated_at = ? WHERE fingerprint = ?",
		nullString(summary), provider, time.Now().UTC(), fingerprint)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}

// UpdateCategories overwrites categories and classification provenance.
func (s *SQLiteStore) UpdateCategories(ctx context.Context, fingerprint string, categories []string, provider string) error {
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE items SET categories = ?, classification_provider = ?, updated_at = ? WHERE fingerprint = ?",
		string(encoded), provider, time.Now().UTC(), fingerprint)
	if err != nil {
		return fmt.Errorf("failed to update categories: %w", err)
	}
	return nil
}

// Items returns up to limit stored items, newest first.
func (s *SQLiteStore) Items(ctx context.Context, limit int) ([]core.Item, error) {
	query := `
	SELECT fingerprint, title, description, body, link, published_at, image_url,
	       source_feed_url, categories, classification_provider, summary,
	       summary_provider, created_at, updated_at
	FROM items
	ORDER BY created_at DESC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// Stats summarizes the store contents.
func (s *SQLiteStore) Stats(ctx context.Context) (core.StoreStats, error) {
	var stats core.StoreStats

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&stats.Items)
	if err != nil {
		return stats, fmt.Errorf("failed to count items: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE summary IS NULL OR summary_provider = ?",
		summarize.FailedProvider).Scan(&stats.MissingSummary)
	if err != nil {
		return stats, fmt.Errorf("failed to count items missing summary: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE summary_provider = ?",
		summarize.FailedProvider).Scan(&stats.FailedSummary)
	if err != nil {
		return stats, fmt.Errorf("failed to count failed summaries: %w", err)
	}

	return stats, nil
}

// scanItems reads item rows into core types.
func scanItems(rows *sql.Rows) ([]core.Item, error) {
	var items []core.Item
	for rows.Next() {
		var item core.Item
		var published sql.NullTime
		var categories string
		var summary, summaryProvider sql.NullString

		err := rows.Scan(
			&item.Fingerprint,
			&item.Title,
			&item.Description,
			&item.Body,
			&item.Link,
			&published,
			&item.ImageURL,
			&item.SourceFeedURL,
			&categories,
			&item.ClassificationProvider,
			&summary,
			&summaryProvider,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		if published.Valid {
			item.PublishedAt = published.Time.UTC()
		}
		item.Summary = summary.String
		item.SummaryProvider = summaryProvider.String
		if categories != "" {
			if err := json.Unmarshal([]byte(categories), &item.Categories); err != nil {
				return nil, fmt.Errorf("failed to decode categories: %w", err)
			}
		}

		items = append(items, item)
	}
	return items, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
