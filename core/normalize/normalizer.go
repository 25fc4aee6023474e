// Package normalize implements the Normalizer interface.
// It converts finalized page and block markup into Markdown, which the
// Markdown and JSON renderers use as their text representation.
package normalize

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
)

// DefaultStrip removes decoration that has no meaning in text output.
var DefaultStrip = []string{".watermark", "style", "script"}

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct {
	conv  *converter.Converter
	strip []string
}

// New creates a MarkdownNormalizer that drops elements matching strip
// before conversion. With no selectors it uses DefaultStrip.
func New(strip ...string) *MarkdownNormalizer {
	if len(strip) == 0 {
		strip = DefaultStrip
	}
	return &MarkdownNormalizer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		strip: strip,
	}
}

// Normalize converts an HTML fragment into Markdown.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	for _, sel := range n.strip {
		doc.Find(sel).Remove()
	}
	cleaned, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serializing HTML: %w", err)
	}

	markdown, err := n.conv.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
