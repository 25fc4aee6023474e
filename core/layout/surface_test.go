package layout_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/dom"
	"github.com/gaurav-prasanna/payreport/core/layout"
	"github.com/stretchr/testify/require"
)

// scripted is a surface whose heights come from data-h attributes instead
// of text metrics. A container measures as the sum of the scripted
// elements inside it, plus gap between each adjacent pair.
type scripted struct {
	*dom.Surface
	gap         float64
	heightCalls int
	failHeight  error
}

func newScripted(t *testing.T, body string) *scripted {
	t.Helper()
	s, err := dom.New(dom.Options{Size: core.PageSize{Width: 600, Height: 100}})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background(), "<html><body>"+body+"</body></html>"))
	return &scripted{Surface: s}
}

func (s *scripted) Height(ctx context.Context, ref core.Ref) (float64, error) {
	s.heightCalls++
	if s.failHeight != nil {
		return 0, s.failHeight
	}
	if v, ok, err := s.Attr(ctx, ref, "data-h"); err != nil {
		return 0, err
	} else if ok {
		return strconv.ParseFloat(v, 64)
	}
	kids, err := s.Children(ctx, ref, "[data-h]")
	if err != nil {
		return 0, err
	}
	var total float64
	for _, k := range kids {
		v, _, err := s.Attr(ctx, k, "data-h")
		if err != nil {
			return 0, err
		}
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, err
		}
		total += h
	}
	if len(kids) > 1 {
		total += s.gap * float64(len(kids)-1)
	}
	return total, nil
}

// blockMarkup renders a source container with one block per height.
func blockMarkup(heights ...float64) string {
	var b strings.Builder
	b.WriteString(`<div id="report-source">`)
	for i, h := range heights {
		fmt.Fprintf(&b, `<div class="block" data-kind="chart" data-seq="%d" data-h="%s"></div>`,
			i, strconv.FormatFloat(h, 'f', -1, 64))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func sourceBlocks(t *testing.T, s core.Surface) []*layout.Block {
	t.Helper()
	blocks, err := layout.BlocksFrom(context.Background(), s, "#report-source > .block")
	require.NoError(t, err)
	return blocks
}

// layoutHeights returns the scripted heights of each page's content blocks.
func layoutHeights(t *testing.T, s core.Surface, pages []*layout.Page) [][]float64 {
	t.Helper()
	out := make([][]float64, 0, len(pages))
	for _, p := range pages {
		refs, err := s.Children(context.Background(), p.ContentRef, ".block")
		require.NoError(t, err)
		row := make([]float64, 0, len(refs))
		for _, ref := range refs {
			v, ok, err := s.Attr(context.Background(), ref, "data-h")
			require.NoError(t, err)
			require.True(t, ok)
			h, err := strconv.ParseFloat(v, 64)
			require.NoError(t, err)
			row = append(row, h)
		}
		out = append(out, row)
	}
	return out
}

func budget100() layout.PageConfig {
	return layout.PageConfig{Height: 140, MarginTop: 20, MarginBottom: 20}
}
