package program

import (
	"bytes"
	"log/slog"
	"regexp"

	"github.com/myrjola/petracoach/internal/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var frontMatter = regexp.MustCompile(`\A---[ \t]*\r?\n[\s\S]*?\r?\n---[ \t]*(\r?\n|\z)`)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown strips a leading YAML front matter block and converts the rest to HTML.
func RenderMarkdown(source string) (string, error) {
	stripped := frontMatter.ReplaceAllString(source, "")
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(stripped), &buf); err != nil {
		return "", errors.Wrap(err, "convert markdown")
	}
	return buf.String(), nil
}

// Markdown renders a markdown file of the pack to HTML.
func (p *Pack) Markdown(name string) (string, error) {
	source, err := p.File(name)
	if err != nil {
		return "", err
	}
	html, err := RenderMarkdown(source)
	if err != nil {
		return "", errors.Wrap(err, "render pack markdown", slog.String("path", name))
	}
	return html, nil
}
