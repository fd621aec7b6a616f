package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	nurl "net/url"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultUserAgent      = "readmefeed/1.0"
	defaultInitialBackoff = 500 * time.Millisecond
	maxElapsedTime        = 30 * time.Second
	maxBodySize           = 10 << 20
)

type Options struct {
	UserAgent      string
	MaxRetries     int           // Extra attempts for 5xx and 429 responses
	InitialBackoff time.Duration // First retry delay, grows exponentially
	Client         *http.Client
}

// HTTPFetcher downloads feeds over HTTP(S)
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	maxRetries     int
	initialBackoff time.Duration
}

func New(opts Options) *HTTPFetcher {
	f := &HTTPFetcher{
		client:         opts.Client,
		userAgent:      opts.UserAgent,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.maxRetries < 0 {
		f.maxRetries = 0
	}
	if f.initialBackoff <= 0 {
		f.initialBackoff = defaultInitialBackoff
	}
	return f
}

// Fetch downloads the feed at url and returns its normalized text.
// The deadline of ctx bounds every attempt and every retry delay.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	u, err := nurl.Parse(url)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			slog.Debug("feed request failed", "url", url, "attempt", attempt, "error", err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			slog.Debug("feed request rejected", "url", url, "attempt", attempt, "status", resp.StatusCode)
			return fmt.Errorf("failed to fetch with status code: %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("failed to fetch with status code: %d", resp.StatusCode))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to read body with %w", err))
		}
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.initialBackoff
	exp.MaxElapsedTime = maxElapsedTime
	bo := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("failed to fetch '%s' with %w", url, err)
	}

	if !utf8.Valid(body) {
		return "", fmt.Errorf("failed to decode '%s': %w", url, ErrUndecodable)
	}

	slog.Debug("feed fetched", "url", url, "bytes", len(body), "attempts", attempt)
	return Normalize(string(body)), nil
}
