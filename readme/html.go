package readme

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed templates/*.html
var templates embed.FS

var (
	engine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	page = template.Must(template.ParseFS(templates, "templates/preview.html"))
)

// RenderHTML converts a markdown document into an HTML fragment.
// Raw HTML in the document is omitted.
func RenderHTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPage wraps the rendered document in a standalone HTML page
func RenderPage(title, markdown string) ([]byte, error) {
	body, err := RenderHTML(markdown)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{
		Title: strings.TrimLeft(title, "# "),
		Body:  template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("could not render preview page: %w", err)
	}
	return buf.Bytes(), nil
}
