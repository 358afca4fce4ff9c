package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/achahar/rss2pdf/internal/app"
	"github.com/achahar/rss2pdf/internal/feed"
	"github.com/achahar/rss2pdf/internal/pdf"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		outputPath  string
		maxArticles int
		listOnly    bool
		healthCheck bool
		configPath  string
		timeout     time.Duration
		delay       time.Duration
		minContent  int
		verbose     bool
	)

	flag.StringVar(&outputPath, "o", "", "Output PDF filename (default "+app.DefaultOutputPath+")")
	flag.IntVar(&maxArticles, "m", 0, "Maximum number of articles to include (default: all)")
	flag.BoolVar(&listOnly, "list", false, "List feed metadata and entry titles without producing a document")
	flag.BoolVar(&healthCheck, "health", false, "Run a feed health check without producing a document")
	flag.StringVar(&configPath, "config", "", "Path to optional YAML config file")
	flag.DurationVar(&timeout, "fetch.timeout", 0, "Per-request timeout (default 30s)")
	flag.DurationVar(&delay, "fetch.delay", 0, "Politeness delay between article fetches (default 2s)")
	flag.IntVar(&minContent, "min.contentChars", 0, "Minimum inline content length to skip fetching the page")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <feed-url>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	delaySet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "fetch.delay" {
			delaySet = true
		}
	})

	cfg := app.Config{
		FeedURL:         flag.Arg(0),
		OutputPath:      outputPath,
		MaxArticles:     maxArticles,
		MinContentChars: minContent,
		Timeout:         timeout,
		Delay:           delay,
		Verbose:         verbose,
	}
	switch {
	case healthCheck:
		cfg.Mode = app.ModeHealth
	case listOnly:
		cfg.Mode = app.ModeList
	}

	if configPath != "" {
		fc, err := app.LoadFileConfig(configPath)
		if err != nil {
			log.Error().Err(err).Msg("config file")
			os.Exit(2)
		}
		fc.Merge(&cfg)
	}
	// An unset flag leaves Delay at zero so a file value can land; only
	// then does the default apply. -fetch.delay 0 stays an explicit zero.
	if !delaySet && cfg.Delay == 0 {
		cfg.Delay = app.DefaultDelay
	}

	if verbose || cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		switch {
		case errors.Is(err, feed.ErrUnreachable):
			log.Error().Err(err).Msg("network failure: the feed could not be reached")
		case errors.Is(err, feed.ErrMalformed):
			log.Error().Err(err).Msg("parse failure: the feed has no recognizable structure")
		case errors.Is(err, pdf.ErrWriteFailed):
			log.Error().Err(err).Msg("write failure: the output document could not be created")
		default:
			log.Error().Err(err).Msg("run failed")
		}
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	return app.New(cfg).Run(context.Background())
}
