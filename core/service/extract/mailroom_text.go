package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mailroom_server/core/domain"
)

// TextConverter handles the plain-text family. HTML attachments are reduced
// to their visible text.
type TextConverter struct{}

func NewTextConverter() *TextConverter { return &TextConverter{} }

func (c *TextConverter) Name() string { return "text" }

func (c *TextConverter) Supports(ext, contentType string) bool {
	switch ext {
	case ".txt", ".md", ".log", ".html", ".htm":
		return true
	}
	switch contentType {
	case "text/plain", "text/markdown", "text/html":
		return true
	}
	return false
}

func (c *TextConverter) Convert(ctx context.Context, att domain.Attachment) (string, error) {
	text := string(att.Data)
	ext := strings.ToLower(att.Filename)
	if strings.HasSuffix(ext, ".html") || strings.HasSuffix(ext, ".htm") ||
		normalizeContentType(att.ContentType) == "text/html" {
		return htmlToText(text), nil
	}
	return text, nil
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// htmlToText strips markup and collapses the whitespace goquery leaves
// behind. Falls back to the raw input when the document cannot be parsed.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, head").Remove()

	text := doc.Text()
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.TrimSpace(strings.Join(lines, "\n"))
	return blankLines.ReplaceAllString(text, "\n\n")
}
