package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Page markup shared by the layout engine, the surfaces and the renderers.
const (
	PageSelector         = ".page"
	PageContentSelector  = ".page-content"
	PageFootnoteSelector = ".page-footnotes"
	PageFooterSelector   = ".page-footer"
	WatermarkSelector    = ".watermark"
	BlockSelector        = ".block"

	AttrKind     = "data-kind"
	AttrPage     = "data-page"
	AttrBudget   = "data-budget"
	AttrOverflow = "data-overflow"
)

// Snapshot reads the paginated state of s back into a Document. Pages are
// the .page elements in document order; each lists the blocks in its
// content column and footnote zone with their current measured heights.
func Snapshot(ctx context.Context, s Surface, size PageSize) (*Document, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}
	doc := &Document{Size: size, HTML: html}

	bodies, err := s.Query(ctx, "body")
	if err != nil {
		return nil, fmt.Errorf("querying body: %w", err)
	}
	if len(bodies) > 0 {
		class, _, err := s.Attr(ctx, bodies[0], "class")
		if err != nil {
			return nil, err
		}
		doc.Draft = hasClass(class, "draft")
	}

	pages, err := s.Query(ctx, PageSelector)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	for i, ref := range pages {
		page, err := snapshotPage(ctx, s, ref, i+1)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		doc.Pages = append(doc.Pages, *page)
	}
	return doc, nil
}

func snapshotPage(ctx context.Context, s Surface, ref Ref, number int) (*DocumentPage, error) {
	page := &DocumentPage{Number: number}

	if v, ok, err := s.Attr(ctx, ref, AttrBudget); err != nil {
		return nil, err
	} else if ok {
		page.Budget, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok, err := s.Attr(ctx, ref, AttrOverflow); err != nil {
		return nil, err
	} else if ok {
		page.Overflow = v == "true"
	}

	var err error
	if page.Blocks, err = placedBlocks(ctx, s, ref, PageContentSelector+" > "+BlockSelector); err != nil {
		return nil, err
	}
	if page.Footnotes, err = placedBlocks(ctx, s, ref, PageFootnoteSelector+" > "+BlockSelector); err != nil {
		return nil, err
	}
	for _, zone := range []string{PageContentSelector, PageFootnoteSelector} {
		refs, err := s.Children(ctx, ref, zone)
		if err != nil {
			return nil, err
		}
		for _, z := range refs {
			h, err := s.Height(ctx, z)
			if err != nil {
				return nil, err
			}
			page.Used += h
		}
	}
	if page.HTML, err = s.OuterHTML(ctx, ref); err != nil {
		return nil, err
	}
	return page, nil
}

func placedBlocks(ctx context.Context, s Surface, page Ref, selector string) ([]PlacedBlock, error) {
	refs, err := s.Children(ctx, page, selector)
	if err != nil {
		return nil, err
	}
	out := make([]PlacedBlock, 0, len(refs))
	for _, ref := range refs {
		kind, _, err := s.Attr(ctx, ref, AttrKind)
		if err != nil {
			return nil, err
		}
		h, err := s.Height(ctx, ref)
		if err != nil {
			return nil, err
		}
		html, err := s.OuterHTML(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, PlacedBlock{Ref: ref, Kind: BlockKind(kind), Height: h, HTML: html})
	}
	return out, nil
}

func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}
