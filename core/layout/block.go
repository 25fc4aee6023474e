package layout

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/payreport/core"
)

// Block is one unit of report content on a surface.
type Block struct {
	Ref  core.Ref
	Kind core.BlockKind
	// Conditional blocks are only present when their content rendered; a
	// conditional block measuring zero height is not placed.
	Conditional bool
}

// Height measures the block's current rendered height.
func (b *Block) Height(ctx context.Context, s core.Surface) (float64, error) {
	if b == nil {
		return 0, fmt.Errorf("measuring block: %w", ErrNilBlock)
	}
	if b.Ref == "" {
		return 0, fmt.Errorf("measuring %s block: %w", b.Kind, ErrMissingRef)
	}
	if s == nil {
		return 0, ErrNilSurface
	}
	h, err := s.Height(ctx, b.Ref)
	if err != nil {
		return 0, fmt.Errorf("measuring block %s: %w", b.Ref, err)
	}
	return h, nil
}

// BlocksFrom returns a block for every element matching selector, in
// document order. Kind comes from the data-kind attribute and the
// conditional flag from data-conditional.
func BlocksFrom(ctx context.Context, s core.Surface, selector string) ([]*Block, error) {
	if s == nil {
		return nil, ErrNilSurface
	}
	refs, err := s.Query(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	blocks := make([]*Block, 0, len(refs))
	for _, ref := range refs {
		kind, _, err := s.Attr(ctx, ref, core.AttrKind)
		if err != nil {
			return nil, err
		}
		cond, _, err := s.Attr(ctx, ref, "data-conditional")
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, &Block{
			Ref:         ref,
			Kind:        core.BlockKind(kind),
			Conditional: cond == "true",
		})
	}
	return blocks, nil
}
