// Package render provides output renderers for finalized report documents.
// This file implements the HTML renderer, which writes the paginated
// document exactly as the layout engine left it.
package render

import (
	"errors"

	"github.com/gaurav-prasanna/payreport/core"
)

// HTMLRenderer writes the paginated HTML document.
type HTMLRenderer struct{}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render returns the document markup.
func (r *HTMLRenderer) Render(doc *core.Document) ([]byte, error) {
	if doc == nil || doc.HTML == "" {
		return nil, errors.New("rendering HTML: empty document")
	}
	return []byte(doc.HTML), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

// ContentType returns the MIME type of HTML output.
func (r *HTMLRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}
