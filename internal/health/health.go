package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/achahar/rss2pdf/internal/fetch"
)

// Connectivity is the result of the reachability stage.
type Connectivity int

const (
	ConnectivityOK Connectivity = iota
	ConnectivityUnreachable
)

// ParseResult categorizes the structural parse stage.
type ParseResult int

const (
	ParseNotAttempted ParseResult = iota
	ParseValid
	ParseWithWarnings
	ParseFailed
)

// staleWindow is the freshness threshold: a feed whose newest entry is
// older than this gets a stale advisory.
const staleWindow = 90 * 24 * time.Hour

// Report is the outcome of a staged feed probe. It is diagnostics only:
// printed and discarded, never fed into the conversion path.
type Report struct {
	URL                   string
	Connectivity          Connectivity
	ConnectivityDetail    string
	ContentType           string
	SuspiciousContentType bool
	Parse                 ParseResult
	ParseDetail           string
	Title                 string
	Description           string
	EntryCount            int
	MissingTitles         int
	MissingLinks          int
	Newest                *time.Time
	Stale                 bool
	Suggestions           []string
}

// Healthy reports whether the feed is usable for conversion.
func (r *Report) Healthy() bool {
	return r.Connectivity == ConnectivityOK && r.Parse != ParseFailed
}

// Checker probes a feed URL without touching article pages or producing a
// document.
type Checker struct {
	Client *fetch.Client
	Now    func() time.Time
}

// Check runs the staged probe. An unreachable URL short-circuits: no
// structural parse is attempted.
func (c *Checker) Check(ctx context.Context, rawURL string) *Report {
	r := &Report{URL: rawURL}

	body, contentType, err := c.Client.Get(ctx, rawURL)
	if err != nil {
		r.Connectivity = ConnectivityUnreachable
		r.ConnectivityDetail = err.Error()
		r.Suggestions = suggestAlternatives(rawURL)
		log.Debug().Str("url", rawURL).Err(err).Msg("health: unreachable")
		return r
	}
	r.Connectivity = ConnectivityOK
	r.ContentType = contentType
	r.SuspiciousContentType = !looksLikeFeedType(contentType)

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		r.Parse = ParseFailed
		r.ParseDetail = err.Error()
		r.Suggestions = suggestAlternatives(rawURL)
		return r
	}

	r.Title = strings.TrimSpace(parsed.Title)
	r.Description = strings.TrimSpace(parsed.Description)
	r.EntryCount = len(parsed.Items)
	for _, item := range parsed.Items {
		if strings.TrimSpace(item.Title) == "" {
			r.MissingTitles++
		}
		if strings.TrimSpace(item.Link) == "" {
			r.MissingLinks++
		}
		if t := newestOf(item); t != nil && (r.Newest == nil || t.After(*r.Newest)) {
			r.Newest = t
		}
	}

	// Entries recovered but with structural gaps count as warnings, not
	// validity: gofeed has no non-fatal warning channel of its own.
	if r.EntryCount == 0 || r.MissingTitles > 0 || r.MissingLinks > 0 {
		r.Parse = ParseWithWarnings
	} else {
		r.Parse = ParseValid
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	r.Stale = r.Newest == nil || now().Sub(*r.Newest) > staleWindow
	return r
}

func newestOf(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func looksLikeFeedType(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, marker := range []string{"xml", "rss", "atom", "json"} {
		if strings.Contains(ct, marker) {
			return true
		}
	}
	return false
}

// commonFeedPaths are path suffixes feeds conventionally live under, used
// to suggest alternatives when a URL fails.
var commonFeedPaths = []string{
	"/feed",
	"/rss",
	"/atom",
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
	"/blog/feed",
}

func suggestAlternatives(rawURL string) []string {
	base := strings.TrimRight(rawURL, "/")
	for _, suffix := range commonFeedPaths {
		if strings.HasSuffix(base, suffix) {
			base = base[:len(base)-len(suffix)]
			break
		}
	}
	var out []string
	for _, suffix := range commonFeedPaths {
		candidate := base + suffix
		if candidate != rawURL {
			out = append(out, candidate)
		}
	}
	return out
}

// Render formats the report for the console.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feed health check: %s\n", r.URL)
	if r.Connectivity == ConnectivityUnreachable {
		fmt.Fprintf(&b, "  Connectivity: unreachable (%s)\n", r.ConnectivityDetail)
		renderSuggestions(&b, r.Suggestions)
		return b.String()
	}
	fmt.Fprintf(&b, "  Connectivity: ok\n")
	fmt.Fprintf(&b, "  Content type: %s", r.ContentType)
	if r.SuspiciousContentType {
		b.WriteString(" (warning: does not look like a feed type)")
	}
	b.WriteString("\n")

	switch r.Parse {
	case ParseFailed:
		fmt.Fprintf(&b, "  Structure: unparseable (%s)\n", r.ParseDetail)
		renderSuggestions(&b, r.Suggestions)
		return b.String()
	case ParseWithWarnings:
		b.WriteString("  Structure: parsed with warnings\n")
	default:
		b.WriteString("  Structure: valid\n")
	}

	fmt.Fprintf(&b, "  Title: %s\n", orUnknown(r.Title))
	fmt.Fprintf(&b, "  Description: %s\n", orUnknown(r.Description))
	fmt.Fprintf(&b, "  Entries: %d\n", r.EntryCount)
	if r.EntryCount > 0 {
		fmt.Fprintf(&b, "  Missing titles: %d/%d\n", r.MissingTitles, r.EntryCount)
		fmt.Fprintf(&b, "  Missing links: %d/%d\n", r.MissingLinks, r.EntryCount)
	}
	if r.Newest != nil {
		fmt.Fprintf(&b, "  Newest entry: %s\n", r.Newest.Format("2006-01-02"))
	}
	if r.Stale {
		b.WriteString("  Freshness: stale (no entries in the last 90 days)\n")
	} else {
		b.WriteString("  Freshness: ok\n")
	}
	return b.String()
}

func renderSuggestions(b *strings.Builder, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	b.WriteString("  Try these alternative feed URLs:\n")
	for i, s := range suggestions {
		if i >= 5 {
			break
		}
		fmt.Fprintf(b, "    %d. %s\n", i+1, s)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
