package app

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the optional single-file YAML configuration. Nested
// sections map naturally onto the flag surface; flags win over file values.
type FileConfig struct {
	Output string `yaml:"output"`

	Max struct {
		Articles int `yaml:"articles"`
	} `yaml:"max"`

	Min struct {
		ContentChars int `yaml:"contentChars"`
	} `yaml:"min"`

	Fetch struct {
		Timeout   duration `yaml:"timeout"`
		Delay     duration `yaml:"delay"`
		UserAgent string   `yaml:"userAgent"`
	} `yaml:"fetch"`

	Verbose bool `yaml:"verbose"`
}

// duration accepts "10s" style strings in YAML, which yaml.v3 does not do
// for time.Duration on its own.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = duration(n)
	return nil
}

// LoadFileConfig reads and decodes the YAML file at path.
func LoadFileConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// Merge fills zero-valued Config fields from the file. Callers apply it
// after flag parsing so explicit flags keep precedence.
func (fc *FileConfig) Merge(cfg *Config) {
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.MaxArticles == 0 && fc.Max.Articles > 0 {
		cfg.MaxArticles = fc.Max.Articles
	}
	if cfg.MinContentChars == 0 && fc.Min.ContentChars > 0 {
		cfg.MinContentChars = fc.Min.ContentChars
	}
	if cfg.Timeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.Timeout = time.Duration(fc.Fetch.Timeout)
	}
	if cfg.Delay == 0 && fc.Fetch.Delay > 0 {
		cfg.Delay = time.Duration(fc.Fetch.Delay)
	}
	if cfg.UserAgent == "" && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}
