// Package dom implements core.Surface over a goquery document.
//
// Element handles are data-ref attributes assigned the first time an element
// is returned to a caller. Heights come from the measure package, so every
// Height call re-measures the element's current subtree.
package dom

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/measure"
	"github.com/rs/zerolog"
)

const refAttr = "data-ref"

var (
	// ErrClosed is returned by every call on a closed surface.
	ErrClosed = errors.New("surface closed")
	// ErrNotLoaded is returned when the surface has no document yet.
	ErrNotLoaded = errors.New("surface has no document loaded")
	// ErrUnknownRef is returned when a ref no longer resolves to an element.
	ErrUnknownRef = errors.New("unknown element ref")
)

// Options configures a Surface.
type Options struct {
	Size core.PageSize
	// Rasterizer turns a snapshot of the paginated document into PDF bytes.
	Rasterizer core.Renderer
}

// Surface is a goquery-backed rendering surface. It is owned by a single
// report-generation request and is not safe for concurrent use.
type Surface struct {
	opts    Options
	metrics *measure.Metrics
	doc     *goquery.Document
	nextRef int
	closed  bool
}

// New creates a Surface for the given page geometry.
func New(opts Options) (*Surface, error) {
	width := opts.Size.Width - 2*opts.Size.MarginSide
	metrics, err := measure.New(width)
	if err != nil {
		return nil, fmt.Errorf("creating surface: %w", err)
	}
	return &Surface{opts: opts, metrics: metrics}, nil
}

// NewFactory returns a core.SurfaceFactory that creates a fresh Surface
// per request.
func NewFactory(opts Options) core.SurfaceFactory {
	return func(ctx context.Context) (core.Surface, error) {
		s, err := New(opts)
		if err != nil {
			return nil, err
		}
		zerolog.Ctx(ctx).Debug().Float64("content_width", s.metrics.ContentWidth()).Msg("surface acquired")
		return s, nil
	}
}

// Load parses html and replaces the current document.
func (s *Surface) Load(ctx context.Context, html string) error {
	if err := s.check(ctx, false); err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parsing HTML: %w", err)
	}
	s.doc = doc
	s.nextRef = 0
	return nil
}

// Query returns refs for every element matching selector.
func (s *Surface) Query(ctx context.Context, selector string) ([]core.Ref, error) {
	if err := s.check(ctx, true); err != nil {
		return nil, err
	}
	return s.refs(s.doc.Find(selector)), nil
}

// Children returns refs for the descendants of ref matching selector.
func (s *Surface) Children(ctx context.Context, ref core.Ref, selector string) ([]core.Ref, error) {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.refs(sel.Find(selector)), nil
}

// Height measures ref's current subtree.
func (s *Surface) Height(ctx context.Context, ref core.Ref) (float64, error) {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return 0, err
	}
	h, err := s.metrics.Height(sel)
	if err != nil {
		return 0, fmt.Errorf("element %s: %w", ref, err)
	}
	return h, nil
}

// Parent returns the parent element of ref.
func (s *Surface) Parent(ctx context.Context, ref core.Ref) (core.Ref, error) {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	parent := sel.Parent()
	if parent.Length() == 0 {
		return "", fmt.Errorf("element %s has no parent", ref)
	}
	return s.assign(parent), nil
}

// Attr returns an attribute of ref.
func (s *Surface) Attr(ctx context.Context, ref core.Ref, name string) (string, bool, error) {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return "", false, err
	}
	v, ok := sel.Attr(name)
	return v, ok, nil
}

// SetAttr sets an attribute of ref. The ref attribute itself is reserved.
func (s *Surface) SetAttr(ctx context.Context, ref core.Ref, name, value string) error {
	if name == refAttr {
		return fmt.Errorf("attribute %s is reserved", refAttr)
	}
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return err
	}
	sel.SetAttr(name, value)
	return nil
}

// Append moves child to the end of parent.
func (s *Surface) Append(ctx context.Context, parent, child core.Ref) error {
	p, err := s.lookup(ctx, parent)
	if err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	c, err := s.lookup(ctx, child)
	if err != nil {
		return fmt.Errorf("child: %w", err)
	}
	if c.Nodes[0] == p.Nodes[0] || c.Contains(p.Nodes[0]) {
		return fmt.Errorf("cannot move %s into its own subtree", child)
	}
	p.AppendSelection(c)
	return nil
}

// InsertAfter parses html and inserts it as the next sibling of ref.
func (s *Surface) InsertAfter(ctx context.Context, ref core.Ref, html string) (core.Ref, error) {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	sel.AfterHtml(html)
	next := sel.Next()
	if next.Length() == 0 {
		return "", fmt.Errorf("inserting after %s: markup produced no element", ref)
	}
	return s.assign(next), nil
}

// Prepend parses html and inserts it as the first child of parent.
func (s *Surface) Prepend(ctx context.Context, parent core.Ref, html string) (core.Ref, error) {
	sel, err := s.lookup(ctx, parent)
	if err != nil {
		return "", err
	}
	sel.PrependHtml(html)
	first := sel.Children().First()
	if first.Length() == 0 {
		return "", fmt.Errorf("prepending to %s: markup produced no element", parent)
	}
	return s.assign(first), nil
}

// SetText replaces the text content of ref.
func (s *Surface) SetText(ctx context.Context, ref core.Ref, text string) error {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return err
	}
	sel.SetText(text)
	return nil
}

// Remove deletes ref and its subtree.
func (s *Surface) Remove(ctx context.Context, ref core.Ref) error {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return err
	}
	sel.Remove()
	return nil
}

// OuterHTML serializes ref without surface bookkeeping attributes.
func (s *Surface) OuterHTML(ctx context.Context, ref core.Ref) (string, error) {
	sel, err := s.lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	clone := sel.Clone()
	stripRefs(clone)
	html, err := goquery.OuterHtml(clone)
	if err != nil {
		return "", fmt.Errorf("serializing %s: %w", ref, err)
	}
	return html, nil
}

// HTML serializes the document without surface bookkeeping attributes.
func (s *Surface) HTML(ctx context.Context) (string, error) {
	if err := s.check(ctx, true); err != nil {
		return "", err
	}
	clone := s.doc.Selection.Clone()
	stripRefs(clone)
	html, err := clone.Html()
	if err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return html, nil
}

// PDF rasterizes the current pages with the configured rasterizer.
func (s *Surface) PDF(ctx context.Context) ([]byte, error) {
	if err := s.check(ctx, true); err != nil {
		return nil, err
	}
	if s.opts.Rasterizer == nil {
		return nil, errors.New("no rasterizer configured")
	}
	doc, err := core.Snapshot(ctx, s, s.opts.Size)
	if err != nil {
		return nil, err
	}
	if t := s.doc.Find("title").First(); t.Length() > 0 {
		doc.Title = strings.TrimSpace(t.Text())
	}
	return s.opts.Rasterizer.Render(doc)
}

// Close releases the document. It is safe to call more than once.
func (s *Surface) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

func (s *Surface) check(ctx context.Context, needDoc bool) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if needDoc && s.doc == nil {
		return ErrNotLoaded
	}
	return nil
}

func (s *Surface) lookup(ctx context.Context, ref core.Ref) (*goquery.Selection, error) {
	if err := s.check(ctx, true); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: empty ref", ErrUnknownRef)
	}
	sel := s.doc.Find(fmt.Sprintf("[%s=%q]", refAttr, string(ref)))
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	return sel.First(), nil
}

func (s *Surface) refs(sel *goquery.Selection) []core.Ref {
	out := make([]core.Ref, 0, sel.Length())
	sel.Each(func(_ int, el *goquery.Selection) {
		out = append(out, s.assign(el))
	})
	return out
}

func (s *Surface) assign(el *goquery.Selection) core.Ref {
	if v, ok := el.Attr(refAttr); ok {
		return core.Ref(v)
	}
	s.nextRef++
	v := "r" + strconv.Itoa(s.nextRef)
	el.SetAttr(refAttr, v)
	return core.Ref(v)
}

func stripRefs(sel *goquery.Selection) {
	sel.RemoveAttr(refAttr)
	sel.Find("[" + refAttr + "]").RemoveAttr(refAttr)
}
