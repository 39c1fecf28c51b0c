package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>NOS Nieuws</title>
    <description>Het laatste nieuws</description>
    <link>https://nos.nl</link>
    <item>
      <title>Kabinet presenteert &lt;b&gt;nieuwe&lt;/b&gt; begroting</title>
      <link>https://nos.nl/artikel/1</link>
      <description>&lt;p&gt;Het kabinet heeft vandaag de begroting gepresenteerd.&lt;/p&gt;</description>
      <pubDate>Sat, 14 Mar 2026 09:30:00 +0100</pubDate>
      <media:content url="https://cdn.nos.nl/image/1.jpg" medium="image"/>
    </item>
    <item>
      <title>Tweede bericht</title>
      <link>https://nos.nl/artikel/2</link>
      <description>Kort bericht zonder opmaak.</description>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Voorbeeld Atom</title>
  <entry>
    <title>Atom artikel</title>
    <link rel="alternate" href="https://example.org/a/1"/>
    <summary>Samenvatting van het artikel.</summary>
    <published>2026-03-14T09:30:00Z</published>
    <id>urn:1</id>
  </entry>
</feed>`

func TestFetchParsesRSS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{})
	parsed, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if parsed.Title != "NOS Nieuws" {
		t.Errorf("Expected feed title 'NOS Nieuws', got %q", parsed.Title)
	}
	if len(parsed.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(parsed.Entries))
	}

	first := parsed.Entries[0]
	if first.Title != "Kabinet presenteert nieuwe begroting" {
		t.Errorf("Expected HTML stripped from title, got %q", first.Title)
	}
	if first.Description != "Het kabinet heeft vandaag de begroting gepresenteerd." {
		t.Errorf("Expected HTML stripped from description, got %q", first.Description)
	}
	if first.ImageURL != "https://cdn.nos.nl/image/1.jpg" {
		t.Errorf("Expected media:content image, got %q", first.ImageURL)
	}

	want := time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("Expected published time %v, got %v", want, first.PublishedAt)
	}
	if !parsed.Entries[1].PublishedAt.IsZero() {
		t.Errorf("Expected zero time for entry without pubDate, got %v", parsed.Entries[1].PublishedAt)
	}
}

func TestFetchParsesAtom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleAtom))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{})
	parsed, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(parsed.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(parsed.Entries))
	}
	entry := parsed.Entries[0]
	if entry.Link != "https://example.org/a/1" {
		t.Errorf("Expected alternate link, got %q", entry.Link)
	}
	if entry.PublishedAt.IsZero() {
		t.Error("Expected parsed published time for Atom entry")
	}
}

func TestFetchCapsEntries(t *testing.T) {
	var items string
	for i := 0; i < 10; i++ {
		items += fmt.Sprintf("<item><title>Item %d</title><link>https://example.org/%d</link></item>", i, i)
	}
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>Groot</title>` + items + `</channel></rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{MaxItemsPerFeed: 3})
	parsed, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(parsed.Entries) != 3 {
		t.Errorf("Expected entries capped at 3, got %d", len(parsed.Entries))
	}
}

func TestFetchUsesConditionalHeaders(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{})

	first, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if first.NotModified {
		t.Error("Expected first fetch to return content")
	}

	second, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if !second.NotModified {
		t.Error("Expected second fetch to report not modified")
	}
	if len(second.Entries) != 0 {
		t.Errorf("Expected no entries on 304, got %d", len(second.Entries))
	}
	if requests != 2 {
		t.Errorf("Expected 2 requests, got %d", requests)
	}
}

func TestFetchRejectsNonFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>geen feed</body></html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{})
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("Expected error for non-feed content")
	}
}

func TestFetchParsesRSSWithEmptyChannelTitle(t *testing.T) {
	const untitled = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title></title>
    <item>
      <title>Bericht zonder kanaaltitel</title>
      <link>https://nos.nl/artikel/3</link>
      <description>Een feed hoeft geen kanaaltitel te hebben.</description>
    </item>
  </channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(untitled))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{})
	parsed, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(parsed.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(parsed.Entries))
	}
	if parsed.Entries[0].Link != "https://nos.nl/artikel/3" {
		t.Errorf("Unexpected entry link %q", parsed.Entries[0].Link)
	}
}
