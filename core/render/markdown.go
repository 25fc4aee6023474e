package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/payreport/core"
)

// MarkdownRenderer writes each page as Markdown, separated by thematic
// breaks so page boundaries survive in plain text.
type MarkdownRenderer struct {
	normalizer core.Normalizer
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer(n core.Normalizer) *MarkdownRenderer {
	return &MarkdownRenderer{normalizer: n}
}

// Render converts every page through the normalizer.
func (r *MarkdownRenderer) Render(doc *core.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("rendering markdown: nil document")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	if doc.Draft {
		b.WriteString("_Draft: not for publication._\n\n")
	}
	for i, page := range doc.Pages {
		md, err := r.normalizer.Normalize(page.HTML)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(md)
	}
	b.WriteString("\n")
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// ContentType returns the MIME type of Markdown output.
func (r *MarkdownRenderer) ContentType() string {
	return "text/markdown; charset=utf-8"
}
