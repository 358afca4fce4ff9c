package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/achahar/rss2pdf/internal/extract"
	"github.com/achahar/rss2pdf/internal/feed"
	"github.com/achahar/rss2pdf/internal/fetch"
)

// ContentSource tags which source backed an entry's resolved content.
type ContentSource string

const (
	SourceFeedContent   ContentSource = "feed-content"
	SourceFeedSummary   ContentSource = "feed-summary"
	SourceFetchedPage   ContentSource = "fetched-page"
	SourceFallbackEmpty ContentSource = "fallback-empty"
)

// Resolved is the final content decision for one entry. It is computed
// once, never mutated, and consumed directly by the document assembler.
type Resolved struct {
	Entry  feed.Entry
	Source ContentSource
	Blocks []extract.Block
	Images []extract.Image
	// Note carries the degradation reason when a preferred source failed.
	Note string
}

// PageFetcher retrieves an article page. *fetch.Client satisfies it.
type PageFetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Resolver decides, per entry, the best available content source. Per-entry
// failures degrade to a lower-quality source; they never escalate.
type Resolver struct {
	Client    PageFetcher
	Extractor extract.Extractor
	// MinContentChars is the minimum inline content length to trust the
	// feed-provided content without fetching. Zero means the extractor default.
	MinContentChars int
	// Delay is the politeness pause after each entry that hit the network.
	// Zero disables it (tests).
	Delay time.Duration
}

func (r *Resolver) minChars() int {
	if r.MinContentChars > 0 {
		return r.MinContentChars
	}
	return extract.DefaultMinChars
}

// ResolveAll processes entries strictly sequentially in feed order and
// returns one Resolved per entry, same order.
func (r *Resolver) ResolveAll(ctx context.Context, entries []feed.Entry) []Resolved {
	out := make([]Resolved, 0, len(entries))
	for i, e := range entries {
		res, fetched := r.resolveOne(ctx, e)
		out = append(out, res)
		log.Debug().Int("entry", e.Index).Str("source", string(res.Source)).Msg("entry resolved")
		if fetched && r.Delay > 0 && i < len(entries)-1 {
			time.Sleep(r.Delay)
		}
	}
	return out
}

// resolveOne applies the decision order: trusted inline content, feed
// summary, fetched page, empty fallback. The second return value reports
// whether the network was touched, so the caller can apply the politeness
// delay only when it matters.
func (r *Resolver) resolveOne(ctx context.Context, e feed.Entry) (Resolved, bool) {
	if blocks := extract.FromFragment(e.Content); charCount(blocks) >= r.minChars() {
		return Resolved{
			Entry:  e,
			Source: SourceFeedContent,
			Blocks: blocks,
			Images: extract.FragmentImages(e.Content),
		}, false
	}

	if blocks := extract.FromFragment(e.Summary); len(blocks) > 0 {
		return Resolved{
			Entry:  e,
			Source: SourceFeedSummary,
			Blocks: blocks,
		}, false
	}

	if e.Link == "" {
		return Resolved{
			Entry:  e,
			Source: SourceFallbackEmpty,
			Note:   "no content, summary, or link in feed",
		}, false
	}

	doc, err := r.fetchPage(ctx, e.Link)
	if err != nil {
		log.Warn().Int("entry", e.Index).Str("link", e.Link).Err(err).Msg("page fetch failed, degrading")
		return Resolved{
			Entry:  e,
			Source: SourceFallbackEmpty,
			Note:   fmt.Sprintf("content could not be fetched: %v", err),
		}, true
	}
	if doc.Chars() == 0 {
		return Resolved{
			Entry:  e,
			Source: SourceFallbackEmpty,
			Note:   "page fetched but no content could be extracted",
		}, true
	}
	res := Resolved{
		Entry:  e,
		Source: SourceFetchedPage,
		Blocks: doc.Blocks,
		Images: doc.Images,
	}
	if doc.LowConfidence {
		res.Note = "no content region matched, whole page used"
	}
	return res, true
}

func (r *Resolver) fetchPage(ctx context.Context, link string) (extract.Document, error) {
	body, _, err := r.Client.Get(ctx, cleanLink(link))
	if err != nil {
		return extract.Document{}, err
	}
	return r.Extractor.Extract(body), nil
}

// cleanLink drops URL fragments before fetching.
func cleanLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return link
	}
	u.Fragment = ""
	return u.String()
}

func charCount(blocks []extract.Block) int {
	n := 0
	for _, b := range blocks {
		n += len(b.Text)
	}
	return n
}

var _ PageFetcher = (*fetch.Client)(nil)
