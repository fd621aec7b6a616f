package post

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is returned when a post is built without a title or link
var ErrMissingField = errors.New("post requires both title and link")

// Post is a single blog entry extracted from a feed
type Post struct {
	Title string
	Link  string
}

// New validates the extracted fields and builds a Post.
// Blank values count as missing.
func New(title, link string) (Post, error) {
	if strings.TrimSpace(title) == "" {
		return Post{}, fmt.Errorf("title is empty: %w", ErrMissingField)
	}
	if strings.TrimSpace(link) == "" {
		return Post{}, fmt.Errorf("link is empty: %w", ErrMissingField)
	}
	return Post{Title: title, Link: link}, nil
}

// Markdown renders the post as an inline markdown link
func (p Post) Markdown() string {
	return "[" + p.Title + "](" + p.Link + ")"
}

// Bullet renders the post as a markdown list entry
func (p Post) Bullet() string {
	return BulletLine(p.Markdown())
}

// BulletLine prefixes an already rendered markdown line with a list marker
func BulletLine(line string) string {
	return "* " + line
}
