package pdf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/achahar/rss2pdf/internal/extract"
	"github.com/achahar/rss2pdf/internal/feed"
	"github.com/achahar/rss2pdf/internal/resolve"
)

func sampleSource() *feed.Source {
	return &feed.Source{
		URL:         "https://example.com/feed",
		Title:       "Example Blog",
		Description: "Posts about things",
	}
}

func TestCompose_TitlePageFields(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	pub := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []resolve.Resolved{{
		Entry:  feed.Entry{Title: "Post", Author: "Alice", Published: &pub, Link: "https://example.com/p"},
		Source: resolve.SourceFeedContent,
		Blocks: []extract.Block{{Kind: extract.BlockParagraph, Text: "body"}},
	}}
	spec := Compose(sampleSource(), items, now)

	if spec.FeedTitle != "Example Blog" || spec.EntryCount != 1 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.GeneratedAt != now {
		t.Fatalf("generation timestamp not recorded")
	}
	if len(spec.Sections) != 1 {
		t.Fatalf("expected 1 section")
	}
	sec := spec.Sections[0]
	if len(sec.Meta) != 2 || sec.Meta[0] != "By Alice" || sec.Meta[1] != "May 1, 2023" {
		t.Fatalf("unexpected meta: %v", sec.Meta)
	}
	if sec.SourceLink != "https://example.com/p" {
		t.Fatalf("source link missing")
	}
}

func TestCompose_OmitsAbsentMetaFields(t *testing.T) {
	items := []resolve.Resolved{{
		Entry:  feed.Entry{Title: "Anon"},
		Source: resolve.SourceFeedSummary,
		Blocks: []extract.Block{{Kind: extract.BlockParagraph, Text: "x"}},
	}}
	spec := Compose(sampleSource(), items, time.Now())
	if len(spec.Sections[0].Meta) != 0 {
		t.Fatalf("absent fields must not produce placeholder meta: %v", spec.Sections[0].Meta)
	}
}

func TestCompose_FallbackEmptyGetsPlaceholder(t *testing.T) {
	items := []resolve.Resolved{{
		Entry:  feed.Entry{Title: "Broken"},
		Source: resolve.SourceFallbackEmpty,
		Note:   "content could not be fetched: timeout",
	}}
	spec := Compose(sampleSource(), items, time.Now())
	sec := spec.Sections[0]
	if len(sec.Blocks) != 1 || !strings.Contains(sec.Blocks[0].Text, "could not be extracted") {
		t.Fatalf("expected placeholder block, got %+v", sec.Blocks)
	}
	if sec.Note == "" {
		t.Fatalf("expected degradation note carried into the section")
	}
}

func TestCompose_EmptyFeedNotice(t *testing.T) {
	spec := Compose(sampleSource(), nil, time.Now())
	if spec.Notice != emptyNotice {
		t.Fatalf("expected empty-feed notice, got %q", spec.Notice)
	}
	if len(spec.Sections) != 0 || spec.EntryCount != 0 {
		t.Fatalf("unexpected sections for empty feed: %+v", spec)
	}
}

func TestWrite_ProducesOpenablePDF(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "articles.pdf")
	items := []resolve.Resolved{{
		Entry:  feed.Entry{Title: "Post", Link: "https://example.com/p"},
		Source: resolve.SourceFetchedPage,
		Blocks: []extract.Block{
			{Kind: extract.BlockHeading, Text: "A heading"},
			{Kind: extract.BlockParagraph, Text: strings.Repeat("prose ", 100)},
			{Kind: extract.BlockList, Text: "a list item"},
			{Kind: extract.BlockQuote, Text: "a quote"},
			{Kind: extract.BlockCode, Text: "x := 1"},
		},
		Images: []extract.Image{{URL: "https://example.com/a.png", Alt: "a chart"}},
	}}
	b := &Builder{OutputPath: out}
	if err := b.Write(Compose(sampleSource(), items, time.Now())); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(raw), "%PDF-") {
		t.Fatalf("output is not a PDF")
	}
}

func TestWrite_EmptyFeedStillProducesDocument(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "empty.pdf")
	b := &Builder{OutputPath: out}
	if err := b.Write(Compose(sampleSource(), nil, time.Now())); err != nil {
		t.Fatalf("empty feed must still produce a document: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(raw), "%PDF-") {
		t.Fatalf("output is not a PDF")
	}
}

func TestWrite_ReportsPathOnFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing-dir", "articles.pdf")
	b := &Builder{OutputPath: out}
	err := b.Write(Compose(sampleSource(), nil, time.Now()))
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), out) {
		t.Fatalf("error must name the attempted path: %v", err)
	}
}
