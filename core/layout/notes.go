package layout

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/rs/zerolog"
)

// SectionRule pairs a note container selector with the selector of the
// content that makes the container worth keeping.
type SectionRule struct {
	Container string
	Content   string
}

// DefaultSectionRules covers explanatory-note and footnote sections.
var DefaultSectionRules = []SectionRule{
	{Container: ".explanatory-notes", Content: ".note"},
	{Container: ".footnotes", Content: ".footnote"},
}

// RemoveEmptySections deletes every container matching a rule that holds
// no content element, so layout never allocates space for it. It returns
// the number of containers removed. Running it again removes nothing.
func RemoveEmptySections(ctx context.Context, s core.Surface, rules ...SectionRule) (int, error) {
	if s == nil {
		return 0, ErrNilSurface
	}
	if len(rules) == 0 {
		rules = DefaultSectionRules
	}

	removed := 0
	for _, rule := range rules {
		containers, err := s.Query(ctx, rule.Container)
		if err != nil {
			return removed, fmt.Errorf("querying %q: %w", rule.Container, err)
		}
		for _, c := range containers {
			content, err := s.Children(ctx, c, rule.Content)
			if err != nil {
				return removed, fmt.Errorf("inspecting %q: %w", rule.Container, err)
			}
			if len(content) > 0 {
				continue
			}
			if err := s.Remove(ctx, c); err != nil {
				return removed, fmt.Errorf("removing empty %q: %w", rule.Container, err)
			}
			removed++
		}
	}
	zerolog.Ctx(ctx).Debug().Int("removed", removed).Msg("empty note sections removed")
	return removed, nil
}

// PlaceFootnotes places a footnote group in page's footnote zone if it fits
// in the page's remaining height. It returns false, leaving the group
// where it was, when it does not fit, including when the page re-measures
// over budget once the group is in place; the caller decides where to try
// next. Errors are reserved for missing arguments and surface failures.
func PlaceFootnotes(ctx context.Context, s core.Surface, page *Page, group *Block) (bool, error) {
	if s == nil {
		return false, ErrNilSurface
	}
	if page == nil {
		return false, fmt.Errorf("placing footnotes: %w", ErrNilPage)
	}
	if group == nil {
		return false, fmt.Errorf("placing footnotes on page %d: %w", page.Number, ErrNilBlock)
	}
	if page.FootnoteRef == "" {
		return false, fmt.Errorf("placing footnotes on page %d: %w", page.Number, ErrMissingRef)
	}

	h, err := group.Height(ctx, s)
	if err != nil {
		return false, err
	}
	remaining, err := page.RemainingHeight(ctx, s)
	if err != nil {
		return false, err
	}
	if remaining < h {
		return false, nil
	}

	origin, err := s.Parent(ctx, group.Ref)
	if err != nil {
		return false, fmt.Errorf("locating footnotes %s: %w", group.Ref, err)
	}
	if err := s.Append(ctx, page.FootnoteRef, group.Ref); err != nil {
		return false, fmt.Errorf("moving footnotes %s to page %d: %w", group.Ref, page.Number, err)
	}

	if remaining, err = page.RemainingHeight(ctx, s); err != nil {
		return false, err
	}
	if remaining < 0 {
		if err := s.Append(ctx, origin, group.Ref); err != nil {
			return false, fmt.Errorf("returning footnotes %s from page %d: %w", group.Ref, page.Number, err)
		}
		zerolog.Ctx(ctx).Debug().Str("block", string(group.Ref)).Int("page", page.Number).
			Float64("over", -remaining).Msg("footnotes overflowed after re-measure, not placed")
		return false, nil
	}
	page.Footnotes = append(page.Footnotes, group)
	return true, nil
}
