package dom

import (
	"context"
	"testing"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var a4 = core.PageSize{Width: 595, Height: 842, MarginTop: 48, MarginBottom: 48, MarginSide: 48}

const page = `<html><head><title>Pay Transparency Report: Northwind Traders</title></head><body>` +
	`<div id="report-source"><div class="block" data-kind="chart" data-height="120"><h3>Chart</h3></div>` +
	`<div class="block" data-kind="table"><p>Row</p></div></div>` +
	`<div id="pages"></div></body></html>`

func loaded(t *testing.T, opts Options) *Surface {
	t.Helper()
	if opts.Size == (core.PageSize{}) {
		opts.Size = a4
	}
	s, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background(), page))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSurface_QueryAssignsStableRefs(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, Options{})

	blocks, err := s.Query(ctx, ".block")
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	again, err := s.Query(ctx, ".block")
	require.NoError(t, err)
	assert.Equal(t, blocks, again)

	src, err := s.Query(ctx, "#report-source")
	require.NoError(t, err)
	kids, err := s.Children(ctx, src[0], "[data-kind=table]")
	require.NoError(t, err)
	assert.Equal(t, blocks[1:], kids)

	kind, ok, err := s.Attr(ctx, blocks[0], "data-kind")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "chart", kind)
}

func TestSurface_HeightTracksMutation(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, Options{})

	blocks, err := s.Query(ctx, ".block")
	require.NoError(t, err)
	h, err := s.Height(ctx, blocks[0])
	require.NoError(t, err)
	assert.Equal(t, 132.0, h)

	require.NoError(t, s.SetAttr(ctx, blocks[0], "data-height", "0"))
	h, err = s.Height(ctx, blocks[0])
	require.NoError(t, err)
	assert.Zero(t, h)

	assert.Error(t, s.SetAttr(ctx, blocks[0], refAttr, "x"))
}

func TestSurface_Mutations(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, Options{})

	pages, err := s.Query(ctx, "#pages")
	require.NoError(t, err)
	blocks, err := s.Query(ctx, ".block")
	require.NoError(t, err)

	pg, err := s.Prepend(ctx, pages[0], `<div class="page"></div>`)
	require.NoError(t, err)
	next, err := s.InsertAfter(ctx, pg, `<div class="page"></div>`)
	require.NoError(t, err)
	assert.NotEqual(t, pg, next)

	require.NoError(t, s.Append(ctx, pg, blocks[0]))
	moved, err := s.Children(ctx, pg, ".block")
	require.NoError(t, err)
	assert.Equal(t, []core.Ref{blocks[0]}, moved)

	assert.ErrorContains(t, s.Append(ctx, blocks[0], pg), "own subtree")
	assert.ErrorContains(t, s.Append(ctx, pg, pg), "own subtree")

	require.NoError(t, s.SetText(ctx, next, "Page 2"))
	html, err := s.OuterHTML(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, `<div class="page">Page 2</div>`, html)

	require.NoError(t, s.Remove(ctx, next))
	_, err = s.Height(ctx, next)
	assert.ErrorIs(t, err, ErrUnknownRef)

	_, err = s.InsertAfter(ctx, pg, "plain text")
	assert.Error(t, err)
}

func TestSurface_HTMLStripsRefs(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, Options{})

	_, err := s.Query(ctx, "div")
	require.NoError(t, err)
	html, err := s.HTML(ctx)
	require.NoError(t, err)
	assert.NotContains(t, html, refAttr)
	assert.Contains(t, html, `data-kind="chart"`)
}

func TestSurface_Lifecycle(t *testing.T) {
	s, err := New(Options{Size: a4})
	require.NoError(t, err)

	_, err = s.Query(context.Background(), "div")
	assert.ErrorIs(t, err, ErrNotLoaded)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Load(ctx, page), context.Canceled)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Load(context.Background(), page), ErrClosed)

	_, err = New(Options{Size: core.PageSize{Width: 100, MarginSide: 50}})
	assert.Error(t, err)
}

type captureRasterizer struct {
	doc *core.Document
}

func (c *captureRasterizer) Render(doc *core.Document) ([]byte, error) {
	c.doc = doc
	return []byte("%PDF-stub"), nil
}
func (c *captureRasterizer) Extension() string   { return ".pdf" }
func (c *captureRasterizer) ContentType() string { return "application/pdf" }

func TestSurface_PDF(t *testing.T) {
	ctx := context.Background()

	_, err := loaded(t, Options{}).PDF(ctx)
	assert.ErrorContains(t, err, "no rasterizer")

	r := &captureRasterizer{}
	out, err := loaded(t, Options{Rasterizer: r}).PDF(ctx)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stub", string(out))
	require.NotNil(t, r.doc)
	assert.Equal(t, "Pay Transparency Report: Northwind Traders", r.doc.Title)
	assert.Equal(t, a4, r.doc.Size)
}

func TestNewFactory(t *testing.T) {
	s, err := NewFactory(Options{Size: a4})(context.Background())
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestSurface_Parent(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, Options{})

	blocks, err := s.Query(ctx, ".block")
	require.NoError(t, err)
	src, err := s.Query(ctx, "#report-source")
	require.NoError(t, err)

	parent, err := s.Parent(ctx, blocks[1])
	require.NoError(t, err)
	assert.Equal(t, src[0], parent)

	html, err := s.Query(ctx, "html")
	require.NoError(t, err)
	_, err = s.Parent(ctx, html[0])
	assert.Error(t, err)
}
