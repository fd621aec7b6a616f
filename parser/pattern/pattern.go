package pattern

import (
	"log/slog"
	"regexp"

	"github.com/scipunch/readmefeed/post"
)

const (
	itemExpr  = `<item>\s*(.*?)\s*</item>`
	titleExpr = `<title>(.*?)</title>`
	linkExpr  = `<link>(.*?)</link>`
)

// Parser extracts posts with fixed tag patterns instead of a full XML reader.
// Input is expected to be single-line (see fetcher.Normalize), since the
// patterns do not match across line breaks.
type Parser struct {
	item  *regexp.Regexp
	title *regexp.Regexp
	link  *regexp.Regexp
}

func New() Parser {
	return compile(itemExpr, titleExpr, linkExpr)
}

// compile leaves the parser inert when any expression is invalid
func compile(item, title, link string) Parser {
	var p Parser
	exprs := []struct {
		dst  **regexp.Regexp
		expr string
	}{
		{&p.item, item},
		{&p.title, title},
		{&p.link, link},
	}
	for _, e := range exprs {
		re, err := regexp.Compile(e.expr)
		if err != nil {
			slog.Warn("invalid feed pattern", "pattern", e.expr, "error", err)
			return Parser{}
		}
		*e.dst = re
	}
	return p
}

func (p Parser) Parse(content string) []post.Post {
	var posts []post.Post
	for _, fragment := range p.Items(content) {
		title, okTitle := firstGroup(p.title, fragment)
		link, okLink := firstGroup(p.link, fragment)
		if !okTitle || !okLink {
			slog.Debug("skipping feed item without title or link", "fragment", truncate(fragment, 80))
			continue
		}
		item, err := post.New(title, link)
		if err != nil {
			slog.Debug("skipping invalid feed item", "error", err)
			continue
		}
		posts = append(posts, item)
	}
	return posts
}

// Items returns the body of every <item> element in document order
func (p Parser) Items(content string) []string {
	if p.item == nil {
		return nil
	}
	matches := p.item.FindAllStringSubmatch(content, -1)
	items := make([]string, 0, len(matches))
	for _, m := range matches {
		items = append(items, m[1])
	}
	return items
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	if re == nil {
		return "", false
	}
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
