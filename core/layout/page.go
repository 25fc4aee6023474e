package layout

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/payreport/core"
)

// PageConfig is the vertical page geometry in px.
type PageConfig struct {
	Height       float64
	MarginTop    float64
	MarginBottom float64
}

// Budget is the height available for content after margins.
func (c PageConfig) Budget() float64 {
	return c.Height - c.MarginTop - c.MarginBottom
}

// Validate checks that the page leaves room for content.
func (c PageConfig) Validate() error {
	if c.Height <= 0 {
		return fmt.Errorf("%w: page height %v must be positive", ErrInvalidPageConfig, c.Height)
	}
	if c.MarginTop < 0 || c.MarginBottom < 0 {
		return fmt.Errorf("%w: margins must not be negative", ErrInvalidPageConfig)
	}
	if c.Budget() <= 0 {
		return fmt.Errorf("%w: margins %v+%v leave no room on a %v page",
			ErrInvalidPageConfig, c.MarginTop, c.MarginBottom, c.Height)
	}
	return nil
}

// Page is one physical page on the surface. Blocks are never removed from
// a page once placed.
type Page struct {
	Number      int
	Ref         core.Ref
	ContentRef  core.Ref
	FootnoteRef core.Ref
	Budget      float64
	Blocks      []*Block
	Footnotes   []*Block
	// Overflow is set when a block taller than the budget was force-placed.
	Overflow bool
}

// Empty reports whether nothing has been placed on the page.
func (p *Page) Empty() bool {
	return len(p.Blocks) == 0 && len(p.Footnotes) == 0
}

// Used measures the height currently taken by the content column and the
// footnote zone.
func (p *Page) Used(ctx context.Context, s core.Surface) (float64, error) {
	if p == nil {
		return 0, ErrNilPage
	}
	if p.ContentRef == "" || p.FootnoteRef == "" {
		return 0, fmt.Errorf("page %d: %w", p.Number, ErrMissingRef)
	}
	content, err := s.Height(ctx, p.ContentRef)
	if err != nil {
		return 0, fmt.Errorf("measuring page %d content: %w", p.Number, err)
	}
	notes, err := s.Height(ctx, p.FootnoteRef)
	if err != nil {
		return 0, fmt.Errorf("measuring page %d footnotes: %w", p.Number, err)
	}
	return content + notes, nil
}

// RemainingHeight re-measures the page and returns the budget left. It is
// negative on an overflowing page.
func (p *Page) RemainingHeight(ctx context.Context, s core.Surface) (float64, error) {
	used, err := p.Used(ctx, s)
	if err != nil {
		return 0, err
	}
	return p.Budget - used, nil
}
