package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/achahar/rss2pdf/internal/fetch"
)

func feedXML(pubDate string) string {
	return fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel>
<title>Example</title><description>Desc</description>
<item><title>Post</title><link>https://example.com/p</link><pubDate>%s</pubDate></item>
</channel></rss>`, pubDate)
}

func newChecker(now time.Time) *Checker {
	return &Checker{
		Client: &fetch.Client{MaxAttempts: 1, PerRequestTimeout: 2 * time.Second},
		Now:    func() time.Time { return now },
	}
}

func TestCheck_UnreachableShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	r := newChecker(time.Now()).Check(context.Background(), srv.URL)
	if r.Connectivity != ConnectivityUnreachable {
		t.Fatalf("expected unreachable, got %v", r.Connectivity)
	}
	if r.Parse != ParseNotAttempted {
		t.Fatalf("structural parse must not run for unreachable URLs")
	}
	if r.Healthy() {
		t.Fatalf("unreachable feed must not be healthy")
	}
	if len(r.Suggestions) == 0 {
		t.Fatalf("expected alternative URL suggestions")
	}
}

func TestCheck_HealthyFeed(t *testing.T) {
	now := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML("Mon, 02 Jan 2023 15:04:05 GMT")))
	}))
	defer srv.Close()

	r := newChecker(now).Check(context.Background(), srv.URL)
	if r.Connectivity != ConnectivityOK || r.Parse != ParseValid {
		t.Fatalf("expected healthy feed, got %+v", r)
	}
	if r.SuspiciousContentType {
		t.Fatalf("rss content type should not be suspicious")
	}
	if r.EntryCount != 1 || r.MissingTitles != 0 || r.MissingLinks != 0 {
		t.Fatalf("unexpected entry validation: %+v", r)
	}
	if r.Stale {
		t.Fatalf("entry within 90 days should not be stale")
	}
	if !r.Healthy() {
		t.Fatalf("expected Healthy()")
	}
}

func TestCheck_SuspiciousContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(feedXML("Mon, 02 Jan 2023 15:04:05 GMT")))
	}))
	defer srv.Close()

	r := newChecker(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)).Check(context.Background(), srv.URL)
	if !r.SuspiciousContentType {
		t.Fatalf("expected suspicious content type flag")
	}
	// Advisory only: the feed still parses and stays healthy.
	if r.Parse != ParseValid || !r.Healthy() {
		t.Fatalf("suspicious type must stay advisory, got %+v", r)
	}
}

func TestCheck_StaleFeed(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML("Mon, 02 Jan 2023 15:04:05 GMT")))
	}))
	defer srv.Close()

	r := newChecker(now).Check(context.Background(), srv.URL)
	if !r.Stale {
		t.Fatalf("expected stale advisory for year-old feed")
	}
}

func TestCheck_Unparseable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>not a feed</body></html>"))
	}))
	defer srv.Close()

	r := newChecker(time.Now()).Check(context.Background(), srv.URL)
	if r.Parse != ParseFailed {
		t.Fatalf("expected parse failure, got %v", r.Parse)
	}
	if r.Healthy() {
		t.Fatalf("unparseable feed must not be healthy")
	}
}

func TestCheck_MissingFieldsAreWarnings(t *testing.T) {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>X</title>
<item><title>Has title</title></item>
<item><link>https://example.com/only-link</link></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	r := newChecker(time.Now()).Check(context.Background(), srv.URL)
	if r.Parse != ParseWithWarnings {
		t.Fatalf("expected warnings, got %v", r.Parse)
	}
	if r.MissingTitles != 1 || r.MissingLinks != 1 {
		t.Fatalf("unexpected missing counts: %+v", r)
	}
}

func TestSuggestAlternatives(t *testing.T) {
	got := suggestAlternatives("https://example.com/rss")
	if len(got) == 0 {
		t.Fatalf("expected suggestions")
	}
	for _, s := range got {
		if s == "https://example.com/rss" {
			t.Fatalf("must not suggest the original URL")
		}
		if !strings.HasPrefix(s, "https://example.com/") {
			t.Fatalf("suggestion should share the base URL: %s", s)
		}
	}
}

func TestRender_UnreachableMentionsSuggestions(t *testing.T) {
	r := &Report{
		URL:                "https://example.com/feed",
		Connectivity:       ConnectivityUnreachable,
		ConnectivityDetail: "dial tcp: refused",
		Suggestions:        []string{"https://example.com/rss"},
	}
	out := r.Render()
	if !strings.Contains(out, "unreachable") || !strings.Contains(out, "https://example.com/rss") {
		t.Fatalf("unexpected render output:\n%s", out)
	}
}
