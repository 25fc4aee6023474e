// Package assemble orchestrates one report-generation request: it renders
// the report markup, loads it onto a fresh rendering surface, drops empty
// note sections, paginates the block groups in their fixed order and reads
// the finished document back.
//
// A request moves through Assembling, Paginating and Finalized and never
// back. Any failure aborts the request; no partial document is returned.
package assemble

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/layout"
	"github.com/gaurav-prasanna/payreport/core/report"
	"github.com/gaurav-prasanna/payreport/core/template"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Templater renders report data into unpaginated HTML.
type Templater interface {
	Render(d *report.Data) (string, error)
}

// Config holds the page geometry and layout policy for every request.
type Config struct {
	Size      core.PageSize
	Overflow  layout.OverflowPolicy
	Sections  []layout.SectionRule
	Watermark string
}

// DefaultConfig is A4 portrait with 48px margins.
func DefaultConfig() Config {
	return Config{
		Size: core.PageSize{
			Width:        595,
			Height:       842,
			MarginTop:    48,
			MarginBottom: 48,
			MarginSide:   48,
		},
		Overflow:  layout.OverflowForce,
		Sections:  layout.DefaultSectionRules,
		Watermark: "DRAFT",
	}
}

// PageConfig returns the vertical geometry handed to the placement engine.
func (c Config) PageConfig() layout.PageConfig {
	return layout.PageConfig{
		Height:       c.Size.Height,
		MarginTop:    c.Size.MarginTop,
		MarginBottom: c.Size.MarginBottom,
	}
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithTemplater replaces the default HTML template.
func WithTemplater(t Templater) Option {
	return func(a *Assembler) { a.tmpl = t }
}

// Assembler produces paginated documents. It is safe for concurrent use;
// each call acquires its own surface.
type Assembler struct {
	cfg      Config
	surfaces core.SurfaceFactory
	tmpl     Templater
}

// New creates an Assembler that acquires surfaces from surfaces.
func New(surfaces core.SurfaceFactory, cfg Config, opts ...Option) (*Assembler, error) {
	if surfaces == nil {
		return nil, errors.New("assembler: nil surface factory")
	}
	if err := cfg.PageConfig().Validate(); err != nil {
		return nil, err
	}
	if cfg.Size.Width-2*cfg.Size.MarginSide <= 0 {
		return nil, fmt.Errorf("%w: side margins leave no content width", layout.ErrInvalidPageConfig)
	}
	if _, err := layout.ParseOverflowPolicy(string(cfg.Overflow)); err != nil {
		return nil, err
	}
	a := &Assembler{cfg: cfg, surfaces: surfaces, tmpl: template.New()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Assemble paginates d and returns the finalized document.
func (a *Assembler) Assemble(ctx context.Context, d *report.Data) (*core.Document, error) {
	return a.run(ctx, d, nil)
}

// Render paginates d and converts the document with r.
func (a *Assembler) Render(ctx context.Context, d *report.Data, r core.Renderer) ([]byte, *core.Document, error) {
	if r == nil {
		return nil, nil, errors.New("assembler: nil renderer")
	}
	doc, err := a.Assemble(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	out, err := r.Render(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering %s: %w", r.Extension(), err)
	}
	return out, doc, nil
}

// RenderPDF paginates d and rasterizes the live surface before releasing it.
func (a *Assembler) RenderPDF(ctx context.Context, d *report.Data) ([]byte, *core.Document, error) {
	var out []byte
	doc, err := a.run(ctx, d, func(ctx context.Context, s core.Surface) error {
		var err error
		out, err = s.PDF(ctx)
		if err != nil {
			return fmt.Errorf("rasterizing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, doc, nil
}

// run executes one request. finish, when set, runs against the live
// surface after the document is finalized.
func (a *Assembler) run(ctx context.Context, d *report.Data, finish func(context.Context, core.Surface) error) (doc *core.Document, err error) {
	if d == nil {
		return nil, errors.New("assembler: nil report data")
	}
	id := uuid.NewString()
	log := zerolog.Ctx(ctx).With().Str("document", id).Logger()
	ctx = log.WithContext(ctx)

	st := newStateMachine()
	defer func() {
		if err != nil {
			log.Error().Err(err).Stringer("state", st.state).Msg("report generation aborted")
			doc = nil
		}
	}()

	s, err := a.surfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring surface: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("releasing surface")
		}
	}()

	simplified := d.AllSuppressed()
	engine, err := a.prepare(ctx, s, d)
	if err != nil {
		return nil, err
	}

	if err := st.advance(Paginating); err != nil {
		return nil, err
	}
	if simplified {
		log.Info().Msg("all statistics suppressed, generating insufficient-data document")
		err = a.paginateSimplified(ctx, s, engine)
	} else {
		err = a.paginate(ctx, s, engine)
	}
	if err != nil {
		return nil, err
	}

	if err := a.finalize(ctx, s, engine); err != nil {
		return nil, err
	}
	if err := st.advance(Finalized); err != nil {
		return nil, err
	}

	doc, err = core.Snapshot(ctx, s, a.cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc.ID = id
	doc.Title = d.Title()
	doc.Draft = d.Draft
	doc.Simplified = simplified

	if finish != nil {
		if err := finish(ctx, s); err != nil {
			return nil, err
		}
	}

	overflow := 0
	for _, p := range doc.Pages {
		if p.Overflow {
			overflow++
		}
	}
	log.Info().Int("pages", len(doc.Pages)).Int("overflow_pages", overflow).Bool("draft", doc.Draft).Msg("report paginated")
	return doc, nil
}

// prepare loads the markup, removes empty note sections and builds the
// placement engine. Drafts get a watermark on every page as it is created.
func (a *Assembler) prepare(ctx context.Context, s core.Surface, d *report.Data) (*layout.Engine, error) {
	html, err := a.tmpl.Render(d)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx, html); err != nil {
		return nil, fmt.Errorf("loading markup: %w", err)
	}
	if _, err := layout.RemoveEmptySections(ctx, s, a.cfg.Sections...); err != nil {
		return nil, err
	}

	opts := []layout.Option{layout.WithOverflowPolicy(a.cfg.Overflow)}
	if d.Draft {
		opts = append(opts, layout.WithDecorator(watermark(a.cfg.Watermark)))
	}
	return layout.NewEngine(s, a.cfg.PageConfig(), opts...)
}

// paginate places the header on the first page, then charts, tables,
// explanatory notes and footnotes, in that order.
func (a *Assembler) paginate(ctx context.Context, s core.Surface, e *layout.Engine) error {
	header, err := layout.BlocksFrom(ctx, s, template.HeaderSelector)
	if err != nil {
		return err
	}
	if _, err := e.NewPage(ctx, header...); err != nil {
		return err
	}

	for _, group := range []string{template.ChartSelector, template.TableSelector, template.NoteSelector} {
		blocks, err := layout.BlocksFrom(ctx, s, group)
		if err != nil {
			return err
		}
		if err := e.Place(ctx, blocks...); err != nil {
			return fmt.Errorf("placing %q: %w", group, err)
		}
	}

	groups, err := layout.BlocksFrom(ctx, s, template.FootnoteSelector)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if err := placeFootnoteGroup(ctx, s, e, g); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) paginateSimplified(ctx context.Context, s core.Surface, e *layout.Engine) error {
	blocks, err := layout.BlocksFrom(ctx, s, template.InsufficientSelector)
	if err != nil {
		return err
	}
	if len(blocks) != 1 {
		return fmt.Errorf("insufficient-data document has %d blocks, want 1", len(blocks))
	}
	_, err = e.NewPage(ctx, blocks...)
	return err
}

// placeFootnoteGroup tries the current page, then a new page, then
// force-places the group on that new page.
func placeFootnoteGroup(ctx context.Context, s core.Surface, e *layout.Engine, g *layout.Block) error {
	ok, err := layout.PlaceFootnotes(ctx, s, e.Current(), g)
	if err != nil || ok {
		return err
	}
	page, err := e.NewPage(ctx)
	if err != nil {
		return err
	}
	if ok, err = layout.PlaceFootnotes(ctx, s, page, g); err != nil || ok {
		return err
	}
	return e.ForceFootnotes(ctx, page, g)
}

// finalize drops the emptied source container and numbers the pages.
func (a *Assembler) finalize(ctx context.Context, s core.Surface, e *layout.Engine) error {
	sources, err := s.Query(ctx, template.SourceSelector)
	if err != nil {
		return err
	}
	for _, ref := range sources {
		if err := s.Remove(ctx, ref); err != nil {
			return fmt.Errorf("removing source container: %w", err)
		}
	}
	return e.StampFooters(ctx, func(n, total int) string {
		return fmt.Sprintf("Page %d of %d", n, total)
	})
}

func watermark(text string) layout.Decorator {
	return func(ctx context.Context, s core.Surface, p *layout.Page) error {
		ref, err := s.Prepend(ctx, p.Ref, `<div class="watermark"></div>`)
		if err != nil {
			return err
		}
		return s.SetText(ctx, ref, text)
	}
}
