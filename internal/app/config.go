package app

import "time"

// Mode selects what a run produces.
type Mode int

const (
	// ModeConvert fetches, resolves, and writes the PDF.
	ModeConvert Mode = iota
	// ModeList prints feed metadata and entry titles, no document.
	ModeList
	// ModeHealth prints a feed health report, no document.
	ModeHealth
)

// Config holds runtime configuration for the application.
type Config struct {
	FeedURL    string
	OutputPath string
	// MaxArticles caps how many entries are converted. Zero means all.
	MaxArticles int
	Mode        Mode

	// MinContentChars is the inline-content trust threshold. Zero uses the
	// extractor default.
	MinContentChars int
	// Delay is the politeness pause between entry fetches.
	Delay time.Duration
	// Timeout bounds each HTTP request.
	Timeout   time.Duration
	UserAgent string

	Verbose bool
}

// Defaults mirrored by the CLI flags and the YAML config file.
const (
	DefaultOutputPath = "rss_articles.pdf"
	DefaultUserAgent  = "rss2pdf/1.0 (+https://github.com/achahar/rss2pdf)"
	DefaultTimeout    = 30 * time.Second
	DefaultDelay      = 2 * time.Second
)

func (c *Config) applyDefaults() {
	if c.OutputPath == "" {
		c.OutputPath = DefaultOutputPath
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
}
