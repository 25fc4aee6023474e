package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/payreport/core"
)

// Formats lists the supported output formats.
var Formats = []string{"pdf", "html", "markdown", "json"}

// ForFormat returns the renderer for a format name. Markdown and JSON
// output convert markup through n.
func ForFormat(format string, n core.Normalizer) (core.Renderer, error) {
	switch strings.ToLower(format) {
	case "pdf":
		return NewPDFRenderer(), nil
	case "html":
		return NewHTMLRenderer(), nil
	case "markdown", "md":
		return NewMarkdownRenderer(n), nil
	case "json":
		return NewJSONRenderer(n), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}
