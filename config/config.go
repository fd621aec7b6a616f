package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/scipunch/readmefeed/parser"
)

const baseCfgPath = "readmefeed/config.toml"

var (
	// KeepOnFetchError leaves the document untouched when the feed can't be fetched
	KeepOnFetchError = "keep"
	// ClearOnFetchError regenerates the section with zero posts
	ClearOnFetchError = "clear"
)

type Config struct {
	FeedURL       string            `toml:"feed_url"`
	ReadmePath    string            `toml:"readme_path"` // Relative paths resolve next to the program sources
	Marker        string            `toml:"marker"`
	MaxPosts      int               `toml:"max_posts"`
	ParserT       parser.Type       `toml:"parser"`
	UserAgent     string            `toml:"user_agent"`
	WaitTimeout   Duration          `toml:"wait_timeout"`    // Allowance for fetch to complete before giving up
	FailOnTimeout bool              `toml:"fail_on_timeout"` // Exit non-zero when the allowance expires
	OnFetchError  string            `toml:"on_fetch_error"`  // "keep" or "clear"
	MaxRetries    int               `toml:"max_retries"`     // Retries for 5xx and 429 responses
	HistoryPath   string            `toml:"history_path"`    // Run history database, disabled when empty
	FilterNames   []string          `toml:"apply_filters"`   // Names of filters to apply (pipeline)
	Filters       map[string]Filter `toml:"filters"`         // Named filters that apply_filters can reference
}

// Filter defines rules for dropping posts before they are counted
type Filter struct {
	MinTitleLength  int      `toml:"min_title_length"` // Minimum character count (0 = no limit)
	ExcludePatterns []string `toml:"exclude_patterns"` // Regex patterns matched against the title
}

// Duration decodes TOML strings such as "5s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration '%s' with %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

// Load reads the config at path, falling back to defaults when path is
// the default location and nothing exists there yet.
func Load(cfgPath string) (Config, error) {
	conf, err := Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == DefaultPath() {
		slog.Debug("no config found, using defaults", "path", cfgPath)
		return Default(), nil
	}
	if err != nil {
		return conf, err
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config at %s with %w", cfgPath, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

func Default() Config {
	return Config{
		FeedURL:      "https://glassgow.tistory.com/rss",
		ReadmePath:   "README.md",
		Marker:       "## Tech Blog Posts",
		MaxPosts:     6,
		ParserT:      parser.Pattern,
		UserAgent:    "readmefeed/1.0",
		WaitTimeout:  Duration{5 * time.Second},
		OnFetchError: KeepOnFetchError,
		Filters:      map[string]Filter{},
	}
}

// Validate reports settings that would make a run meaningless
func (c Config) Validate() error {
	var errs []error
	if c.FeedURL == "" {
		errs = append(errs, errors.New("feed_url is required"))
	}
	if c.ReadmePath == "" {
		errs = append(errs, errors.New("readme_path is required"))
	}
	if c.Marker == "" {
		errs = append(errs, errors.New("marker is required"))
	}
	if c.MaxPosts < 0 {
		errs = append(errs, fmt.Errorf("max_posts must not be negative, got %d", c.MaxPosts))
	}
	if c.WaitTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("wait_timeout must be positive, got %s", c.WaitTimeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	switch c.OnFetchError {
	case KeepOnFetchError, ClearOnFetchError:
	default:
		errs = append(errs, fmt.Errorf("on_fetch_error must be %q or %q, got %q", KeepOnFetchError, ClearOnFetchError, c.OnFetchError))
	}
	if _, err := parser.Init(c.ParserT); err != nil {
		errs = append(errs, err)
	}
	for _, name := range c.FilterNames {
		if _, ok := c.Filters[name]; !ok {
			errs = append(errs, fmt.Errorf("filter '%s' is not defined", name))
		}
	}
	return errors.Join(errs...)
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	return "readmefeed.toml"
}
