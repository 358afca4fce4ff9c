package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/achahar/rss2pdf/internal/fetch"
)

// ErrUnreachable marks feed-level network, DNS, or timeout failures.
var ErrUnreachable = errors.New("feed unreachable")

// ErrMalformed marks a response with no parseable feed structure.
var ErrMalformed = errors.New("feed malformed")

// Source is a fetched feed with its normalized entries. It is transient:
// built fresh per invocation and never persisted.
type Source struct {
	URL         string
	Title       string
	Description string
	Link        string
	Entries     []Entry
	FetchedAt   time.Time
}

// Entry is one article of a feed. All optional fields are normalized once
// at ingestion; Title is never empty afterwards.
type Entry struct {
	// Index is the entry's ordinal position in feed order.
	Index     int
	Title     string
	Link      string
	Author    string
	Published *time.Time
	// Content is the feed-provided full content, possibly empty.
	Content string
	// Summary is the feed-provided description, possibly empty.
	Summary string
}

const defaultTitle = "Untitled"

// Fetcher retrieves and parses a feed URL into a Source.
type Fetcher struct {
	Client *fetch.Client
	Now    func() time.Time
}

// Fetch downloads and parses the feed. When maxEntries > 0 only the first
// maxEntries entries in feed order are kept. Zero recoverable entries is a
// valid result at this layer.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxEntries int) (*Source, error) {
	body, _, err := f.Client.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, rawURL, err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, rawURL, err)
	}

	items := parsed.Items
	if maxEntries > 0 && len(items) > maxEntries {
		items = items[:maxEntries]
	}
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		entries = append(entries, normalizeItem(item, i))
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	src := &Source{
		URL:         rawURL,
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Link:        strings.TrimSpace(parsed.Link),
		Entries:     entries,
		FetchedAt:   now(),
	}
	if src.Title == "" {
		src.Title = rawURL
	}
	log.Debug().Str("url", rawURL).Int("entries", len(entries)).Msg("feed fetched")
	return src, nil
}

// normalizeItem resolves all optional feed-dialect fields in one place so
// later stages never reach back into the raw item.
func normalizeItem(item *gofeed.Item, index int) Entry {
	e := Entry{
		Index:   index,
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Content: item.Content,
		Summary: item.Description,
	}
	if e.Title == "" {
		e.Title = defaultTitle
	}
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		e.Author = strings.TrimSpace(item.Author.Name)
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		e.Author = strings.TrimSpace(item.Authors[0].Name)
	}
	e.Published = publishedTime(item)
	return e
}

// publishedTime tries the parsed timestamps first, then a lenient parse of
// the raw date string for dialects gofeed does not recognize.
func publishedTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	raw := strings.TrimSpace(item.Published)
	if raw == "" {
		raw = strings.TrimSpace(item.Updated)
	}
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &t
}
