package fetcher

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidURL  = errors.New("invalid feed url")
	ErrUndecodable = errors.New("feed body is not valid UTF-8")
)

// FeedFetcher retrieves the raw text of a feed.
// The returned text is already normalized to a single line.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Normalize replaces every line break with a single space so tag patterns
// can match across wrapped lines
func Normalize(content string) string {
	return lineBreaks.Replace(content)
}
