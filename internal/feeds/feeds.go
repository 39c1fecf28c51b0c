// Package feeds provides RSS/Atom feed fetching and parsing
package feeds

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"helder/internal/core"
)

// RSS represents an RSS feed structure
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

// Atom represents an Atom feed structure
type Atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Link    []AtomLink  `xml:"link"`
	Entries []AtomEntry `xml:"entry"`
}

// Channel represents an RSS channel
type Channel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	Items       []RSSItem `xml:"item"`
}

// RSSItem represents an RSS item
type RSSItem struct {
	Title       string      `xml:"title"`
	Link        string      `xml:"link"`
	Description string      `xml:"description"`
	Content     string      `xml:"encoded"`
	PubDate     string      `xml:"pubDate"`
	GUID        string      `xml:"guid"`
	Enclosure   Enclosure   `xml:"enclosure"`
	Media       []MediaItem `xml:"content"`
}

// Enclosure represents an RSS enclosure element
type Enclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// MediaItem represents a media:content element
type MediaItem struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr"`
	Type   string `xml:"type,attr"`
}

// AtomLink represents an Atom link element
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// AtomEntry represents an Atom entry
type AtomEntry struct {
	Title     string     `xml:"title"`
	Link      []AtomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	ID        string     `xml:"id"`
}

// cacheEntry holds conditional request headers for a single feed URL.
type cacheEntry struct {
	etag         string
	lastModified string
}

// Fetcher retrieves and parses feeds over HTTP. It remembers ETag and
// Last-Modified headers per URL so unchanged feeds are not re-downloaded.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxItems  int

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Options configures a Fetcher.
type Options struct {
	Timeout         time.Duration
	UserAgent       string
	MaxItemsPerFeed int
}

// NewFetcher creates a feed fetcher.
func NewFetcher(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "Helder/1.0"
	}
	maxItems := opts.MaxItemsPerFeed
	if maxItems <= 0 {
		maxItems = 50
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxItems:  maxItems,
		cache:     make(map[string]cacheEntry),
	}
}

// ParsedFeed represents a parsed feed with metadata
type ParsedFeed struct {
	ID          string
	URL         string
	Title       string
	Entries     []core.FeedEntry
	NotModified bool
}

// Fetch retrieves and parses the feed at the given URL. When the server
// answers 304 Not Modified the result has NotModified set and no entries.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*ParsedFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set conditional headers for efficient fetching
	f.mu.Lock()
	cached := f.cache[feedURL]
	f.mu.Unlock()
	if cached.lastModified != "" {
		req.Header.Set("If-Modified-Since", cached.lastModified)
	}
	if cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return &ParsedFeed{URL: feedURL, NotModified: true}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	parsed, err := f.parse(body, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	f.mu.Lock()
	f.cache[feedURL] = cacheEntry{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	f.mu.Unlock()

	return parsed, nil
}

// parse attempts to decode the body as RSS first, then Atom. The XMLName
// tags on both root structs reject documents with a different root
// element, so decode success alone identifies the format.
func (f *Fetcher) parse(body []byte, feedURL string) (*ParsedFeed, error) {
	var rss RSS
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&rss); err == nil {
		return f.parseRSS(rss, feedURL), nil
	}

	var atom Atom
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&atom); err == nil {
		return f.parseAtom(atom, feedURL), nil
	}

	return nil, fmt.Errorf("unable to parse as RSS or Atom feed")
}

// parseRSS converts RSS data to feed entries
func (f *Fetcher) parseRSS(rss RSS, feedURL string) *ParsedFeed {
	parsed := &ParsedFeed{
		ID:    generateFeedID(feedURL),
		URL:   feedURL,
		Title: rss.Channel.Title,
	}

	for _, item := range rss.Channel.Items {
		if len(parsed.Entries) >= f.maxItems {
			break
		}
		parsed.Entries = append(parsed.Entries, core.FeedEntry{
			Link:        strings.TrimSpace(item.Link),
			Title:       stripHTML(item.Title),
			Description: stripHTML(item.Description),
			Body:        stripHTML(item.Content),
			PublishedAt: parseRSSDate(item.PubDate),
			ImageURL:    extractImage(item),
		})
	}

	return parsed
}

// parseAtom converts Atom data to feed entries
func (f *Fetcher) parseAtom(atom Atom, feedURL string) *ParsedFeed {
	parsed := &ParsedFeed{
		ID:    generateFeedID(feedURL),
		URL:   feedURL,
		Title: atom.Title,
	}

	for _, entry := range atom.Entries {
		if len(parsed.Entries) >= f.maxItems {
			break
		}

		// Find the main link
		var link string
		for _, l := range entry.Link {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}

		published := entry.Published
		if published == "" {
			published = entry.Updated
		}

		parsed.Entries = append(parsed.Entries, core.FeedEntry{
			Link:        strings.TrimSpace(link),
			Title:       stripHTML(entry.Title),
			Description: stripHTML(entry.Summary),
			Body:        stripHTML(entry.Content),
			PublishedAt: parseAtomDate(published),
		})
	}

	return parsed
}

// extractImage returns the first usable image URL from an RSS item.
func extractImage(item RSSItem) string {
	for _, m := range item.Media {
		if m.URL == "" {
			continue
		}
		if m.Medium == "image" || strings.HasPrefix(m.Type, "image/") || m.Medium == "" && m.Type == "" {
			return m.URL
		}
	}
	if item.Enclosure.URL != "" && strings.HasPrefix(item.Enclosure.Type, "image/") {
		return item.Enclosure.URL
	}
	return ""
}

// stripHTML removes markup from feed text, returning plain text.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// generateFeedID creates a deterministic ID for a feed based on its URL
func generateFeedID(feedURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(feedURL)).String()
}

// parseRSSDate parses RSS date formats
func parseRSSDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}

	// Common RSS date formats
	formats := []string{
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, strings.TrimSpace(dateStr)); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}

// parseAtomDate parses Atom date formats
func parseAtomDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}

	// Atom uses RFC3339
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dateStr)); err == nil {
		return t.UTC()
	}

	// Fallback to common formats
	return parseRSSDate(dateStr)
}
