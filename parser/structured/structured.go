package structured

import (
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/readmefeed/post"
)

// Parser reads RSS, Atom and JSON feeds with gofeed
type Parser struct {
	parser *gofeed.Parser
}

func New() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

func (p *Parser) Parse(content string) []post.Post {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	feed, err := p.parser.ParseString(content)
	if err != nil {
		slog.Warn("failed to parse feed", "error", err)
		return nil
	}

	posts := make([]post.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry, err := post.New(item.Title, item.Link)
		if err != nil {
			slog.Debug("skipping invalid feed item", "guid", item.GUID, "error", err)
			continue
		}
		posts = append(posts, entry)
	}
	return posts
}
