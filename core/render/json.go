// Package render — JSON renderer.
// Describes the finished layout: page geometry, which blocks landed on
// which page with their measured heights, and each block's text as
// Markdown. Downstream tooling uses it to audit pagination.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/payreport/core"
)

// LayoutJSON is the JSON renderer's output document.
type LayoutJSON struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Draft      bool          `json:"draft"`
	Simplified bool          `json:"simplified"`
	PageSize   core.PageSize `json:"page_size"`
	PageCount  int           `json:"page_count"`
	Pages      []PageJSON    `json:"pages"`
}

// PageJSON is one page of LayoutJSON.
type PageJSON struct {
	Number    int         `json:"number"`
	Budget    float64     `json:"budget"`
	Used      float64     `json:"used"`
	Overflow  bool        `json:"overflow"`
	Blocks    []BlockJSON `json:"blocks"`
	Footnotes []BlockJSON `json:"footnotes"`
}

// BlockJSON is one placed block.
type BlockJSON struct {
	Kind     core.BlockKind `json:"kind"`
	Height   float64        `json:"height"`
	Markdown string         `json:"markdown"`
}

// JSONRenderer produces the layout summary.
type JSONRenderer struct {
	normalizer core.Normalizer
}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer(n core.Normalizer) *JSONRenderer {
	return &JSONRenderer{normalizer: n}
}

// Render marshals the layout of doc.
func (r *JSONRenderer) Render(doc *core.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("rendering JSON: nil document")
	}
	out := LayoutJSON{
		ID:         doc.ID,
		Title:      doc.Title,
		Draft:      doc.Draft,
		Simplified: doc.Simplified,
		PageSize:   doc.Size,
		PageCount:  len(doc.Pages),
		Pages:      make([]PageJSON, 0, len(doc.Pages)),
	}
	for _, p := range doc.Pages {
		blocks, err := r.blocks(p.Blocks)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p.Number, err)
		}
		notes, err := r.blocks(p.Footnotes)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p.Number, err)
		}
		out.Pages = append(out.Pages, PageJSON{
			Number:    p.Number,
			Budget:    p.Budget,
			Used:      p.Used,
			Overflow:  p.Overflow,
			Blocks:    blocks,
			Footnotes: notes,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

func (r *JSONRenderer) blocks(in []core.PlacedBlock) ([]BlockJSON, error) {
	out := make([]BlockJSON, 0, len(in))
	for _, b := range in {
		md, err := r.normalizer.Normalize(b.HTML)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", b.Ref, err)
		}
		out = append(out, BlockJSON{Kind: b.Kind, Height: b.Height, Markdown: md})
	}
	return out, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// ContentType returns the MIME type of JSON output.
func (r *JSONRenderer) ContentType() string {
	return "application/json"
}
