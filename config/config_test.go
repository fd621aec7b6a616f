package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	conf := Default()

	if conf.FeedURL != "https://glassgow.tistory.com/rss" {
		t.Errorf("unexpected feed url %q", conf.FeedURL)
	}
	if conf.Marker != "## Tech Blog Posts" {
		t.Errorf("unexpected marker %q", conf.Marker)
	}
	if conf.MaxPosts != 6 {
		t.Errorf("expected 6 max posts, got %d", conf.MaxPosts)
	}
	if conf.ReadmePath != "README.md" {
		t.Errorf("unexpected readme path %q", conf.ReadmePath)
	}
	if conf.WaitTimeout.Duration != 5*time.Second {
		t.Errorf("expected 5s wait timeout, got %s", conf.WaitTimeout)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestRead_OverlaysDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
feed_url = "https://example.com/rss"
max_posts = 3
wait_timeout = "250ms"
apply_filters = ["no-notices"]

[filters.no-notices]
exclude_patterns = ["^\\[Notice\\]"]
min_title_length = 4
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	conf, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if conf.FeedURL != "https://example.com/rss" {
		t.Errorf("unexpected feed url %q", conf.FeedURL)
	}
	if conf.MaxPosts != 3 {
		t.Errorf("expected 3 max posts, got %d", conf.MaxPosts)
	}
	if conf.WaitTimeout.Duration != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", conf.WaitTimeout)
	}
	if conf.Marker != "## Tech Blog Posts" {
		t.Errorf("expected default marker to survive, got %q", conf.Marker)
	}
	f, ok := conf.Filters["no-notices"]
	if !ok {
		t.Fatal("expected filter to be decoded")
	}
	if len(f.ExcludePatterns) != 1 || f.ExcludePatterns[0] != `^\[Notice\]` {
		t.Errorf("unexpected exclude patterns %v", f.ExcludePatterns)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestRead_InvalidDuration(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte(`wait_timeout = "soon"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(cfgPath); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWriteThenRead(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.toml")
	conf := Default()
	conf.FeedURL = "https://example.com/feed"
	conf.FailOnTimeout = true

	if err := Write(cfgPath, conf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	read, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if read.FeedURL != conf.FeedURL || !read.FailOnTimeout || read.WaitTimeout != conf.WaitTimeout {
		t.Errorf("config did not survive write: %+v", read)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "missing feed", mutate: func(c *Config) { c.FeedURL = "" }, errMsg: "feed_url"},
		{name: "missing marker", mutate: func(c *Config) { c.Marker = "" }, errMsg: "marker"},
		{name: "negative max", mutate: func(c *Config) { c.MaxPosts = -1 }, errMsg: "max_posts"},
		{name: "zero timeout", mutate: func(c *Config) { c.WaitTimeout.Duration = 0 }, errMsg: "wait_timeout"},
		{name: "bad policy", mutate: func(c *Config) { c.OnFetchError = "retry" }, errMsg: "on_fetch_error"},
		{name: "bad parser", mutate: func(c *Config) { c.ParserT = "youtube" }, errMsg: "unknown parser type"},
		{name: "undefined filter", mutate: func(c *Config) { c.FilterNames = []string{"nope"} }, errMsg: "filter 'nope'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := Default()
			tt.mutate(&conf)
			err := conf.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error mentioning %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestLoad_MissingDefaultUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	conf, err := Load(DefaultPath())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if conf.FeedURL != Default().FeedURL {
		t.Errorf("expected defaults, got %+v", conf)
	}
}

func TestLoad_MissingExplicitPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}
