package parser

import (
	"fmt"

	"github.com/scipunch/readmefeed/parser/pattern"
	"github.com/scipunch/readmefeed/parser/structured"
	"github.com/scipunch/readmefeed/post"
)

type Type = string

var (
	Pattern    = Type("pattern")
	Structured = Type("structured")
)

// Parser extracts every valid post from normalized feed text, in feed order.
// Implementations never fail: unreadable input yields no posts.
type Parser interface {
	Parse(content string) []post.Post
}

// Init returns the parser registered for the given type
func Init(t Type) (Parser, error) {
	switch t {
	case Pattern, "":
		return pattern.New(), nil
	case Structured:
		return structured.New(), nil
	default:
		return nil, fmt.Errorf("unknown parser type: %s", t)
	}
}

// Lines keeps the first max posts and renders each one as a markdown link.
// A non-positive max keeps nothing.
func Lines(posts []post.Post, max int) []string {
	if max < 0 {
		max = 0
	}
	if len(posts) > max {
		posts = posts[:max]
	}
	lines := make([]string, 0, len(posts))
	for _, p := range posts {
		lines = append(lines, p.Markdown())
	}
	return lines
}
