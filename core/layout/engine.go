package layout

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/rs/zerolog"
)

// OverflowPolicy decides what happens to a block taller than an empty page.
type OverflowPolicy string

const (
	// OverflowForce places the block anyway and flags the page.
	OverflowForce OverflowPolicy = "force"
	// OverflowReject fails the layout run with ErrBlockTooTall.
	OverflowReject OverflowPolicy = "reject"
)

// ParseOverflowPolicy parses a policy name. The empty string is OverflowForce.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(s) {
	case "", OverflowForce:
		return OverflowForce, nil
	case OverflowReject:
		return OverflowReject, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q (want %q or %q)", s, OverflowForce, OverflowReject)
	}
}

// Decorator runs once on every new page, before anything is placed on it.
type Decorator func(ctx context.Context, s core.Surface, page *Page) error

// Option configures an Engine.
type Option func(*Engine)

// WithOverflowPolicy sets the policy for blocks taller than a page.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithDecorator adds a page decorator.
func WithDecorator(d Decorator) Option {
	return func(e *Engine) { e.decorators = append(e.decorators, d) }
}

// Engine places blocks onto pages of one surface. It is single-use and not
// safe for concurrent use.
type Engine struct {
	s          core.Surface
	cfg        PageConfig
	policy     OverflowPolicy
	decorators []Decorator
	pages      []*Page
}

// NewEngine creates a placement engine over s.
func NewEngine(s core.Surface, cfg PageConfig, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, ErrNilSurface
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{s: s, cfg: cfg, policy: OverflowForce}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Pages returns the pages created so far, in order.
func (e *Engine) Pages() []*Page {
	out := make([]*Page, len(e.pages))
	copy(out, e.pages)
	return out
}

// Current returns the last page, or nil before the first page exists.
func (e *Engine) Current() *Page {
	if len(e.pages) == 0 {
		return nil
	}
	return e.pages[len(e.pages)-1]
}

// NewPage inserts an empty page after the last page (the first page goes
// to the start of body), runs the decorators, then places any initial
// blocks starting on the new page.
func (e *Engine) NewPage(ctx context.Context, initial ...*Block) (*Page, error) {
	page := &Page{Number: len(e.pages) + 1, Budget: e.cfg.Budget()}
	markup := fmt.Sprintf(`<div class="page" %s="%d" %s="%s"><div class="page-content"></div><div class="page-footnotes"></div></div>`,
		core.AttrPage, page.Number, core.AttrBudget, strconv.FormatFloat(page.Budget, 'f', -1, 64))

	var err error
	if prev := e.Current(); prev != nil {
		page.Ref, err = e.s.InsertAfter(ctx, prev.Ref, markup)
	} else {
		page.Ref, err = e.prependToBody(ctx, markup)
	}
	if err != nil {
		return nil, fmt.Errorf("creating page %d: %w", page.Number, err)
	}
	if page.ContentRef, err = e.zone(ctx, page, core.PageContentSelector); err != nil {
		return nil, err
	}
	if page.FootnoteRef, err = e.zone(ctx, page, core.PageFootnoteSelector); err != nil {
		return nil, err
	}
	for _, d := range e.decorators {
		if err := d(ctx, e.s, page); err != nil {
			return nil, fmt.Errorf("decorating page %d: %w", page.Number, err)
		}
	}
	e.pages = append(e.pages, page)
	zerolog.Ctx(ctx).Debug().Int("page", page.Number).Float64("budget", page.Budget).Msg("page created")

	if err := e.Place(ctx, initial...); err != nil {
		return nil, err
	}
	return page, nil
}

// Place assigns blocks to pages in order, starting on the current page.
// A block that does not fit moves whole to a new page. A block that does
// not fit on an empty page is handled by the overflow policy.
func (e *Engine) Place(ctx context.Context, blocks ...*Block) error {
	for i, b := range blocks {
		if b == nil {
			return fmt.Errorf("placing block %d: %w", i, ErrNilBlock)
		}
		if b.Ref == "" {
			return fmt.Errorf("placing block %d (%s): %w", i, b.Kind, ErrMissingRef)
		}
		if err := e.place(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) place(ctx context.Context, b *Block) error {
	log := zerolog.Ctx(ctx)

	h, err := b.Height(ctx, e.s)
	if err != nil {
		return err
	}
	if b.Conditional && h == 0 {
		log.Debug().Str("block", string(b.Ref)).Msg("skipping empty conditional block")
		return nil
	}

	page := e.Current()
	if page == nil {
		if page, err = e.NewPage(ctx); err != nil {
			return err
		}
	}
	remaining, err := page.RemainingHeight(ctx, e.s)
	if err != nil {
		return err
	}
	if remaining < h && !page.Empty() {
		if page, err = e.NewPage(ctx); err != nil {
			return err
		}
		if remaining, err = page.RemainingHeight(ctx, e.s); err != nil {
			return err
		}
	}
	if remaining < h {
		return e.overflow(ctx, page, b, h, page.ContentRef, &page.Blocks)
	}

	if err := e.appendTo(ctx, page, page.ContentRef, b, &page.Blocks); err != nil {
		return err
	}
	if remaining, err = page.RemainingHeight(ctx, e.s); err != nil {
		return err
	}
	if remaining >= 0 {
		return nil
	}

	// The block fit by its own height but the column grew by more than
	// that. Move it to a fresh page unless it is alone here.
	if len(page.Blocks) == 1 && len(page.Footnotes) == 0 {
		return e.flagOverflow(ctx, page, b, h)
	}
	page.Blocks = page.Blocks[:len(page.Blocks)-1]
	log.Debug().Str("block", string(b.Ref)).Int("page", page.Number).Float64("over", -remaining).
		Msg("block overflowed after re-measure, moving to next page")

	if page, err = e.NewPage(ctx); err != nil {
		return err
	}
	if err := e.appendTo(ctx, page, page.ContentRef, b, &page.Blocks); err != nil {
		return err
	}
	if remaining, err = page.RemainingHeight(ctx, e.s); err != nil {
		return err
	}
	if remaining < 0 {
		return e.flagOverflow(ctx, page, b, h)
	}
	return nil
}

// ForceFootnotes places a footnote group on page regardless of space,
// subject to the overflow policy.
func (e *Engine) ForceFootnotes(ctx context.Context, page *Page, group *Block) error {
	if page == nil {
		return ErrNilPage
	}
	h, err := group.Height(ctx, e.s)
	if err != nil {
		return err
	}
	return e.overflow(ctx, page, group, h, page.FootnoteRef, &page.Footnotes)
}

// StampFooters adds a footer to every page with the text returned by label.
// Footers sit below the footnote zone and take no budget.
func (e *Engine) StampFooters(ctx context.Context, label func(n, total int) string) error {
	total := len(e.pages)
	for _, p := range e.pages {
		ref, err := e.s.InsertAfter(ctx, p.FootnoteRef, `<div class="page-footer"></div>`)
		if err != nil {
			return fmt.Errorf("adding footer to page %d: %w", p.Number, err)
		}
		if err := e.s.SetText(ctx, ref, label(p.Number, total)); err != nil {
			return fmt.Errorf("adding footer to page %d: %w", p.Number, err)
		}
	}
	return nil
}

func (e *Engine) overflow(ctx context.Context, page *Page, b *Block, h float64, zone core.Ref, list *[]*Block) error {
	if e.policy == OverflowReject {
		return fmt.Errorf("%s block %s is %.1fpx on a %.1fpx page: %w", b.Kind, b.Ref, h, page.Budget, ErrBlockTooTall)
	}
	if err := e.appendTo(ctx, page, zone, b, list); err != nil {
		return err
	}
	return e.flagOverflow(ctx, page, b, h)
}

func (e *Engine) flagOverflow(ctx context.Context, page *Page, b *Block, h float64) error {
	if e.policy == OverflowReject {
		return fmt.Errorf("%s block %s overflows page %d: %w", b.Kind, b.Ref, page.Number, ErrBlockTooTall)
	}
	page.Overflow = true
	if err := e.s.SetAttr(ctx, page.Ref, core.AttrOverflow, "true"); err != nil {
		return fmt.Errorf("flagging page %d: %w", page.Number, err)
	}
	zerolog.Ctx(ctx).Warn().
		Str("block", string(b.Ref)).
		Str("kind", string(b.Kind)).
		Int("page", page.Number).
		Float64("height", h).
		Float64("budget", page.Budget).
		Msg("block exceeds page budget, placed anyway")
	return nil
}

func (e *Engine) appendTo(ctx context.Context, page *Page, zone core.Ref, b *Block, list *[]*Block) error {
	if err := e.s.Append(ctx, zone, b.Ref); err != nil {
		return fmt.Errorf("moving block %s to page %d: %w", b.Ref, page.Number, err)
	}
	*list = append(*list, b)
	return nil
}

func (e *Engine) zone(ctx context.Context, page *Page, selector string) (core.Ref, error) {
	refs, err := e.s.Children(ctx, page.Ref, selector)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page.Number, err)
	}
	if len(refs) != 1 {
		return "", fmt.Errorf("page %d: found %d %q zones: %w", page.Number, len(refs), selector, ErrMissingRef)
	}
	return refs[0], nil
}

func (e *Engine) prependToBody(ctx context.Context, markup string) (core.Ref, error) {
	bodies, err := e.s.Query(ctx, "body")
	if err != nil {
		return "", err
	}
	if len(bodies) == 0 {
		return "", fmt.Errorf("document has no body: %w", ErrMissingRef)
	}
	return e.s.Prepend(ctx, bodies[0], markup)
}
