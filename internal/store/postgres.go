package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"helder/internal/core"
	"helder/internal/summarize"
)

// PostgresStore is the shared item store for multi-node deployments.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *PostgresStore) initialize() error {
	itemsTable := `
	CREATE TABLE IF NOT EXISTS items (
		fingerprint TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		body TEXT,
		link TEXT,
		published_at TIMESTAMPTZ,
		image_url TEXT,
		source_feed_url TEXT,
		categories TEXT,
		classification_provider TEXT,
		summary TEXT,
		summary_provider TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Exists reports whether an item with the fingerprint is stored.
func (s *PostgresStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	query, args, err := s.builder.
		Select("1").
		From("items").
		Where(sq.Eq{"fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check item existence: %w", err)
	}
	return true, nil
}

// Upsert inserts the item or refreshes its feed-derived fields.
func (s *PostgresStore) Upsert(ctx context.Context, item core.Item) error {
	categories, err := json.Marshal(item.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	now := time.Now().UTC()
	query, args, err := s.builder.
		Insert("items").
		Columns("fingerprint", "title", "description", "body", "link",
			"published_at", "image_url", "source_feed_url", "categories",
			"classification_provider", "summary", "summary_provider",
			"created_at", "updated_at").
		Values(item.Fingerprint, item.Title, item.Description, item.Body,
			item.Link, nullTime(item.PublishedAt), item.ImageURL,
			item.SourceFeedURL, string(categories), item.ClassificationProvider,
			nullString(item.Summary), nullString(item.SummaryProvider), now, now).
		Suffix(`ON CONFLICT (fingerprint) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			body = EXCLUDED.body,
			link = EXCLUDED.link,
			image_url = EXCLUDED.image_url,
			source_feed_url = EXCLUDED.source_feed_url,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

// MissingSummary returns items still waiting for a summary.
func (s *PostgresStore) MissingSummary(ctx context.Context, limit int) ([]core.Item, error) {
	query, args, err := s.selectItems().
		Where(sq.Or{
			sq.Eq{"summary": nil},
			sq.Eq{"summary_provider": summarize.FailedProvider},
		}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items missing summary: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateSummary records a summary and its provenance for the item.
func (s *PostgresStore) UpdateSummary(ctx context.Context, fingerprint, summary, provider string) error {
	query, args, err := s.builder.
		Update("items").
		Set("summary", nullString(summary)).
		Set("summary_provider", provider).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}

// UpdateCategories overwrites categories and classification provenance.
func (s *PostgresStore) UpdateCategories(ctx context.Context, fingerprint string, categories []string, provider string) error {
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	query, args, err := s.builder.
		Update("items").
		Set("categories", string(encoded)).
		Set("classification_provider", provider).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update categories: %w", err)
	}
	return nil
}

// Items returns up to limit stored items, newest first.
func (s *PostgresStore) Items(ctx context.Context, limit int) ([]core.Item, error) {
	query, args, err := s.selectItems().
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// Stats summarizes the store contents.
func (s *PostgresStore) Stats(ctx context.Context) (core.StoreStats, error) {
	var stats core.StoreStats

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&stats.Items)
	if err != nil {
		return stats, fmt.Errorf("failed to count items: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE summary IS NULL OR summary_provider = $1",
		summarize.FailedProvider).Scan(&stats.MissingSummary)
	if err != nil {
		return stats, fmt.Errorf("failed to count items missing summary: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE summary_provider = $1",
		summarize.FailedProvider).Scan(&stats.FailedSummary)
	if err != nil {
		return stats, fmt.Errorf("failed to count failed summaries: %w", err)
	}

	return stats, nil
}

func (s *PostgresStore) selectItems() sq.SelectBuilder {
	return s.builder.
		Select("fingerprint", "title", "description", "body", "link",
			"published_at", "image_url", "source_feed_url", "categories",
			"classification_provider", "summary", "summary_provider",
			"created_at", "updated_at").
		From("items")
}
