package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"helder/internal/core"
	"helder/internal/feeds"
	"helder/internal/summarize"
)

// fakeStore is an in-memory store.Store for pipeline tests.
type fakeStore struct {
	items      map[string]core.Item
	existsErr  error
	upsertErr  error
	updateErr  error
	existCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]core.Item)}
}

func (f *fakeStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	f.existCalls++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.items[fingerprint]
	return ok, nil
}

func (f *fakeStore) Upsert(ctx context.Context, item core.Item) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.items[item.Fingerprint]; ok {
		item.Categories = existing.Categories
		item.ClassificationProvider = existing.ClassificationProvider
		item.Summary = existing.Summary
		item.SummaryProvider = existing.SummaryProvider
	}
	f.items[item.Fingerprint] = item
	return nil
}

func (f *fakeStore) MissingSummary(ctx context.Context, limit int) ([]core.Item, error) {
	var missing []core.Item
	for _, item := range f.items {
		if len(missing) == limit {
			break
		}
		if item.Summary == "" && (item.SummaryProvider == "" || item.SummaryProvider == summarize.FailedProvider) {
			missing = append(missing, item)
		}
	}
	return missing, nil
}

func (f *fakeStore) UpdateSummary(ctx context.Context, fingerprint, summary, provider string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	item := f.items[fingerprint]
	item.Summary = summary
	item.SummaryProvider = provider
	f.items[fingerprint] = item
	return nil
}

func (f *fakeStore) UpdateCategories(ctx context.Context, fingerprint string, categories []string, provider string) error {
	item := f.items[fingerprint]
	item.Categories = categories
	item.ClassificationProvider = provider
	f.items[fingerprint] = item
	return nil
}

func (f *fakeStore) Items(ctx context.Context, limit int) ([]core.Item, error) {
	var items []core.Item
	for _, item := range f.items {
		if len(items) == limit {
			break
		}
		items = append(items, item)
	}
	return items, nil
}

func (f *fakeStore) Stats(ctx context.Context) (core.StoreStats, error) {
	return core.StoreStats{Items: len(f.items)}, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeFetcher serves canned feeds by URL.
type fakeFetcher struct {
	feeds map[string]*feeds.ParsedFeed
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, feedURL string) (*feeds.ParsedFeed, error) {
	if err := f.errs[feedURL]; err != nil {
		return nil, err
	}
	return f.feeds[feedURL], nil
}

// fakeClassifier counts invocations.
type fakeClassifier struct {
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, entry core.FeedEntry) ([]string, string) {
	f.calls++
	return []string{"binnenland"}, "gemini"
}

func entry(link string) core.FeedEntry {
	return core.FeedEntry{
		Link:        link,
		Title:       "Titel",
		Description: "Beschrijving.",
		PublishedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestRunStoresAndClassifiesNewEntries(t *testing.T) {
	st := newFakeStore()
	classifier := &fakeClassifier{}
	fetcher := &fakeFetcher{feeds: map[string]*feeds.ParsedFeed{
		"feed-a": {Entries: []core.FeedEntry{entry("https://nos.nl/1"), entry("https://nos.nl/2")}},
	}}

	coordinator := NewCoordinator(fetcher, classifier, st, []string{"feed-a"})
	inserted, err := coordinator.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", inserted)
	}
	if classifier.calls != 2 {
		t.Errorf("Expected 2 classifications, got %d", classifier.calls)
	}
	if len(st.items) != 2 {
		t.Errorf("Expected 2 stored items, got %d", len(st.items))
	}
	for _, item := range st.items {
		if item.ClassificationProvider != "gemini" {
			t.Errorf("Expected classification provenance, got %q", item.ClassificationProvider)
		}
		if item.SourceFeedURL != "feed-a" {
			t.Errorf("Expected source feed recorded, got %q", item.SourceFeedURL)
		}
	}
}

func TestRunNeverReclassifiesSeenEntries(t *testing.T) {
	st := newFakeStore()
	classifier := &fakeClassifier{}
	fetcher := &fakeFetcher{feeds: map[string]*feeds.ParsedFeed{
		"feed-a": {Entries: []core.FeedEntry{entry("https://nos.nl/1")}},
	}}

	coordinator := NewCoordinator(fetcher, classifier, st, []string{"feed-a"})

	for i := 0; i < 3; i++ {
		if _, err := coordinator.Run(context.Background()); err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
	}

	if classifier.calls != 1 {
		t.Errorf("Expected exactly 1 classification across repeated runs, got %d", classifier.calls)
	}
}

func TestRunSkipsEntriesAlreadyInStore(t *testing.T) {
	st := newFakeStore()
	classifier := &fakeClassifier{}
	fetcher := &fakeFetcher{feeds: map[string]*feeds.ParsedFeed{
		"feed-a": {Entries: []core.FeedEntry{entry("https://nos.nl/1")}},
	}}

	// Seed the store through a first coordinator; a fresh coordinator has
	// an empty memo and must rely on the store existence check.
	first := NewCoordinator(fetcher, classifier, st, []string{"feed-a"})
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("Seed run failed: %v", err)
	}

	second := NewCoordinator(fetcher, classifier, st, []string{"feed-a"})
	inserted, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if inserted != 0 {
		t.Errorf("Expected no new inserts, got %d", inserted)
	}
	if classifier.calls != 1 {
		t.Errorf("Expected no classification for existing item, got %d total calls", classifier.calls)
	}
}

func TestRunIsolatesFeedFailures(t *testing.T) {
	st := newFakeStore()
	classifier := &fakeClassifier{}
	fetcher := &fakeFetcher{
		feeds: map[string]*feeds.ParsedFeed{
			"feed-b": {Entries: []core.FeedEntry{entry("https://nos.nl/1")}},
		},
		errs: map[string]error{"feed-a": errors.New("connection refused")},
	}

	coordinator := NewCoordinator(fetcher, classifier, st, []string{"feed-a", "feed-b"})
	inserted, err := coordinator.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected partial failure to be absorbed, got %v", err)
	}
	if inserted != 1 {
		t.Errorf("Expected 1 inserted from healthy feed, got %d", inserted)
	}
}

func TestRunFailsWhenAllFeedsFail(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{errs: map[string]error{
		"feed-a": errors.New("down"),
		"feed-b": errors.New("down"),
	}}

	coordinator := NewCoordinator(fetcher, &fakeClassifier{}, st, []string{"feed-a", "feed-b"})
	if _, err := coordinator.Run(context.Background()); err == nil {
		t.Error("Expected error when every feed fails")
	}
}

func TestRunSkipsNotModifiedFeeds(t *testing.T) {
	st := newFakeStore()
	classifier := &fakeClassifier{}
	fetcher := &fakeFetcher{feeds: map[string]*feeds.ParsedFeed{
		"feed-a": {NotModified: true},
	}}

	coordinator := NewCoordinator(fetcher, classifier, st, []string{"feed-a"})
	inserted, err := coordinator.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if inserted != 0 || classifier.calls != 0 {
		t.Errorf("Expected nothing processed for unmodified feed, got inserted=%d calls=%d", inserted, classifier.calls)
	}
}

// fakeSummarizer returns scripted summaries per fingerprint.
type fakeSummarizer struct {
	byFingerprint map[string]string
	calls         int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, item core.Item) (string, string) {
	f.calls++
	if summary, ok := f.byFingerprint[item.Fingerprint]; ok {
		return summary, "gemini"
	}
	return "", summarize.FailedProvider
}

func TestBackfillSummarizesPendingItems(t *testing.T) {
	st := newFakeStore()
	_ = st.Upsert(context.Background(), core.Item{Fingerprint: "fp-1", Title: "Een"})
	_ = st.Upsert(context.Background(), core.Item{Fingerprint: "fp-2", Title: "Twee"})

	summarizer := &fakeSummarizer{byFingerprint: map[string]string{
		"fp-1": "Uitleg een.",
		"fp-2": "Uitleg twee.",
	}}

	backfiller := NewBackfiller(st, summarizer)
	updated, err := backfiller.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 summarized, got %d", updated)
	}
	if st.items["fp-1"].Summary != "Uitleg een." || st.items["fp-1"].SummaryProvider != "gemini" {
		t.Errorf("Unexpected summary state: %+v", st.items["fp-1"])
	}
}

func TestBackfillRecordsFailureSentinel(t *testing.T) {
	st := newFakeStore()
	_ = st.Upsert(context.Background(), core.Item{Fingerprint: "fp-1", Title: "Een"})

	backfiller := NewBackfiller(st, &fakeSummarizer{})
	updated, err := backfiller.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("Expected 0 summarized, got %d", updated)
	}
	if st.items["fp-1"].SummaryProvider != summarize.FailedProvider {
		t.Errorf("Expected failure sentinel, got %q", st.items["fp-1"].SummaryProvider)
	}
}

func TestBackfillRetriesFailedItems(t *testing.T) {
	st := newFakeStore()
	_ = st.Upsert(context.Background(), core.Item{Fingerprint: "fp-1", Title: "Een"})

	failing := &fakeSummarizer{}
	backfiller := NewBackfiller(st, failing)
	if _, err := backfiller.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// A later pass with a working summarizer picks the item up again.
	working := &fakeSummarizer{byFingerprint: map[string]string{"fp-1": "Nu wel gelukt."}}
	recovered := NewBackfiller(st, working)
	updated, err := recovered.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("Expected failed item retried, got %d", updated)
	}
	if st.items["fp-1"].Summary != "Nu wel gelukt." {
		t.Errorf("Expected recovered summary, got %q", st.items["fp-1"].Summary)
	}
}

func TestBackfillRespectsLimit(t *testing.T) {
	st := newFakeStore()
	for _, fp := range []string{"a", "b", "c", "d", "e"} {
		_ = st.Upsert(context.Background(), core.Item{Fingerprint: fp, Title: fp})
	}

	summarizer := &fakeSummarizer{byFingerprint: map[string]string{
		"a": "s", "b": "s", "c": "s", "d": "s", "e": "s",
	}}
	backfiller := NewBackfiller(st, summarizer)

	updated, err := backfiller.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if updated != 2 || summarizer.calls != 2 {
		t.Errorf("Expected batch of 2, got updated=%d calls=%d", updated, summarizer.calls)
	}
}
