// Package core defines the report-generation interfaces for payreport.
// Each stage of the pipeline is a clean, testable interface: the rendering
// surface that layout mutates and measures, the renderers that turn a
// finalized Document into bytes, and the HTML normalizer.
package core

import "context"

// Ref is an opaque handle to one element on a rendering surface.
// The zero value never refers to an element.
type Ref string

// Surface is a rendering surface holding one live report document.
//
// Every call is a blocking round-trip and must complete before the next
// mutation is issued. A surface is owned by exactly one report-generation
// request and is never shared.
type Surface interface {
	// Load replaces the surface content with the given HTML document.
	Load(ctx context.Context, html string) error
	// Query returns the elements matching selector, in document order.
	Query(ctx context.Context, selector string) ([]Ref, error)
	// Children returns the descendants of ref matching selector, in document order.
	Children(ctx context.Context, ref Ref, selector string) ([]Ref, error)
	// Height returns the rendered height of ref in px, measured now.
	Height(ctx context.Context, ref Ref) (float64, error)
	// Parent returns the parent element of ref.
	Parent(ctx context.Context, ref Ref) (Ref, error)
	// Attr returns an attribute of ref.
	Attr(ctx context.Context, ref Ref, name string) (string, bool, error)
	// SetAttr sets an attribute of ref.
	SetAttr(ctx context.Context, ref Ref, name, value string) error
	// Append moves child to the end of parent.
	Append(ctx context.Context, parent, child Ref) error
	// InsertAfter parses html and inserts it as the next sibling of ref.
	InsertAfter(ctx context.Context, ref Ref, html string) (Ref, error)
	// Prepend parses html and inserts it as the first child of parent.
	Prepend(ctx context.Context, parent Ref, html string) (Ref, error)
	// SetText replaces the text content of ref.
	SetText(ctx context.Context, ref Ref, text string) error
	// Remove deletes ref and its subtree.
	Remove(ctx context.Context, ref Ref) error
	// OuterHTML serializes ref and its subtree.
	OuterHTML(ctx context.Context, ref Ref) (string, error)
	// HTML serializes the current document.
	HTML(ctx context.Context) (string, error)
	// PDF rasterizes the current document.
	PDF(ctx context.Context) ([]byte, error)
	// Close releases the surface. Later calls fail.
	Close() error
}

// SurfaceFactory acquires a fresh surface for one report-generation request.
type SurfaceFactory func(ctx context.Context) (Surface, error)

// BlockKind is the semantic kind of a content block.
type BlockKind string

const (
	KindHeader           BlockKind = "header"
	KindChart            BlockKind = "chart"
	KindTable            BlockKind = "table"
	KindNoteGroup        BlockKind = "note-group"
	KindFootnoteGroup    BlockKind = "footnote-group"
	KindInsufficientData BlockKind = "insufficient-data"
)

// PlacedBlock is one block as it ended up on a finalized page.
type PlacedBlock struct {
	Ref    Ref       `json:"ref"`
	Kind   BlockKind `json:"kind"`
	Height float64   `json:"height"`
	HTML   string    `json:"-"`
}

// DocumentPage is one fixed-height page of a finalized document.
type DocumentPage struct {
	Number    int           `json:"number"`
	Budget    float64       `json:"budget"`
	Used      float64       `json:"used"`
	Overflow  bool          `json:"overflow"`
	Blocks    []PlacedBlock `json:"blocks"`
	Footnotes []PlacedBlock `json:"footnotes"`
	HTML      string        `json:"-"`
}

// PageSize is the physical page geometry in px (72 dpi).
type PageSize struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	MarginTop    float64 `json:"margin_top"`
	MarginBottom float64 `json:"margin_bottom"`
	MarginSide   float64 `json:"margin_side"`
}

// Document is a finalized, paginated report. It is immutable once returned
// by the assembler.
type Document struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Draft      bool           `json:"draft"`
	Simplified bool           `json:"simplified"`
	Size       PageSize       `json:"page_size"`
	Pages      []DocumentPage `json:"pages"`
	HTML       string         `json:"-"`
}

// Renderer converts a finalized Document into an output format.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".html", ".pdf").
	Extension() string
	// ContentType returns the MIME type served for this renderer's output.
	ContentType() string
}

// Normalizer converts an HTML fragment into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}
