package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/achahar/rss2pdf/internal/extract"
	"github.com/achahar/rss2pdf/internal/feed"
	"github.com/achahar/rss2pdf/internal/fetch"
	"github.com/achahar/rss2pdf/internal/health"
	"github.com/achahar/rss2pdf/internal/pdf"
	"github.com/achahar/rss2pdf/internal/resolve"
)

// App wires the pipeline: feed fetcher, content resolver, document
// assembler, plus the independent health checker.
type App struct {
	cfg      Config
	fetcher  *feed.Fetcher
	resolver *resolve.Resolver
	checker  *health.Checker
	builder  *pdf.Builder
	// Stdout receives the list and health output. Defaults to os.Stdout.
	Stdout io.Writer
}

// New builds an App from cfg. Feed fetches accept any content type (the
// health check flags suspicious ones); article fetches are gated to HTML.
func New(cfg Config) *App {
	cfg.applyDefaults()

	feedClient := &fetch.Client{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       2,
		PerRequestTimeout: cfg.Timeout,
	}
	pageClient := &fetch.Client{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       1,
		PerRequestTimeout: cfg.Timeout,
		AllowedTypes:      fetch.HTMLTypes,
	}

	return &App{
		cfg:     cfg,
		fetcher: &feed.Fetcher{Client: feedClient},
		resolver: &resolve.Resolver{
			Client:          pageClient,
			Extractor:       extract.Extractor{MinChars: cfg.MinContentChars},
			MinContentChars: cfg.MinContentChars,
			Delay:           cfg.Delay,
		},
		checker: &health.Checker{Client: feedClient},
		builder: &pdf.Builder{OutputPath: cfg.OutputPath},
		Stdout:  os.Stdout,
	}
}

// Run executes the configured mode. All fatal failures come back as a
// single wrapped error; per-entry degradations only log.
func (a *App) Run(ctx context.Context) error {
	switch a.cfg.Mode {
	case ModeHealth:
		return a.runHealth(ctx)
	case ModeList:
		return a.runList(ctx)
	default:
		return a.runConvert(ctx)
	}
}

func (a *App) runHealth(ctx context.Context) error {
	report := a.checker.Check(ctx, a.cfg.FeedURL)
	fmt.Fprint(a.Stdout, report.Render())
	if !report.Healthy() {
		return fmt.Errorf("feed %s failed the health check", a.cfg.FeedURL)
	}
	return nil
}

func (a *App) runList(ctx context.Context) error {
	src, err := a.fetcher.Fetch(ctx, a.cfg.FeedURL, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "Title: %s\n", src.Title)
	if src.Description != "" {
		fmt.Fprintf(a.Stdout, "Description: %s\n", src.Description)
	}
	if src.Link != "" {
		fmt.Fprintf(a.Stdout, "Link: %s\n", src.Link)
	}
	fmt.Fprintf(a.Stdout, "Articles: %d\n", len(src.Entries))
	for i, e := range src.Entries {
		if i >= 10 {
			fmt.Fprintf(a.Stdout, "... and %d more articles\n", len(src.Entries)-10)
			break
		}
		fmt.Fprintf(a.Stdout, "%d. %s\n", i+1, e.Title)
	}
	return nil
}

func (a *App) runConvert(ctx context.Context) error {
	src, err := a.fetcher.Fetch(ctx, a.cfg.FeedURL, a.cfg.MaxArticles)
	if err != nil {
		return err
	}
	if len(src.Entries) == 0 {
		log.Warn().Str("url", a.cfg.FeedURL).Msg("feed has no entries, writing notice-only document")
	}

	items := a.resolver.ResolveAll(ctx, src.Entries)
	for _, item := range items {
		if item.Source == resolve.SourceFallbackEmpty {
			log.Warn().Int("entry", item.Entry.Index).Str("title", item.Entry.Title).Msg("entry degraded to empty fallback")
		}
	}

	if err := a.builder.Build(src, items); err != nil {
		return err
	}
	if info, err := os.Stat(a.cfg.OutputPath); err == nil {
		log.Info().Str("path", a.cfg.OutputPath).Int64("bytes", info.Size()).Msg("conversion complete")
	}
	return nil
}
