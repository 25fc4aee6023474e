// Package measure computes rendered heights of report markup.
//
// Heights are in px at 72 dpi, so one px is one PDF point. Text is wrapped
// with gofpdf's Helvetica metrics at the content width, so the measured
// height of a paragraph matches the height the PDF renderer gives it.
// Vertical margins of adjacent siblings collapse to the larger of the two,
// which makes the height of a container something to re-measure after every
// insertion rather than a running sum.
package measure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jung-kurt/gofpdf"
)

// Style is the vertical box model of one element kind.
type Style struct {
	FontSize     float64
	LineHeight   float64
	MarginTop    float64
	MarginBottom float64
	Bold         bool
}

// textStyles are elements measured as wrapped text.
var textStyles = map[string]Style{
	"h1": {FontSize: 18, LineHeight: 22, MarginBottom: 8, Bold: true},
	"h2": {FontSize: 15, LineHeight: 19, MarginTop: 12, MarginBottom: 6, Bold: true},
	"h3": {FontSize: 13, LineHeight: 17, MarginTop: 10, MarginBottom: 4, Bold: true},
	"h4": {FontSize: 11, LineHeight: 14, MarginTop: 8, MarginBottom: 4, Bold: true},
	"p":  {FontSize: 10, LineHeight: 14, MarginBottom: 6},
	"li": {FontSize: 10, LineHeight: 14, MarginBottom: 6},
}

// FootnoteScale shrinks text inside footnote groups.
const FootnoteScale = 0.8

// Box model constants shared with the PDF renderer.
const (
	BlockSpacing = 12 // bottom margin of every .block
	CellPadding  = 2
	ListIndent   = 16
	RuleWidth    = 1 // bottom rule under every table row
)

// StyleFor returns the text style of tag, if it is measured as text.
func StyleFor(tag string) (Style, bool) {
	st, ok := textStyles[tag]
	return st, ok
}

// Metrics measures goquery selections. It is not safe for concurrent use.
type Metrics struct {
	width float64
	pdf   *gofpdf.Fpdf
	tr    func(string) string
}

// New creates Metrics for a content column of the given width in px.
func New(contentWidth float64) (*Metrics, error) {
	if contentWidth <= 0 {
		return nil, fmt.Errorf("content width must be positive, got %v", contentWidth)
	}
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("initializing font metrics: %w", err)
	}
	return &Metrics{
		width: contentWidth,
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
	}, nil
}

// ContentWidth returns the column width used for wrapping.
func (m *Metrics) ContentWidth() float64 {
	return m.width
}

// Height returns the height of sel's first element including its own
// vertical margins.
func (m *Metrics) Height(sel *goquery.Selection) (float64, error) {
	if sel.Length() == 0 {
		return 0, fmt.Errorf("measuring: empty selection")
	}
	b := m.box(sel.First(), m.width, 1)
	if err := m.pdf.Error(); err != nil {
		return 0, fmt.Errorf("measuring: %w", err)
	}
	return b.top + b.height + b.bottom, nil
}

// box is a measured element: content height plus collapsible margins.
type box struct {
	height float64
	top    float64
	bottom float64
}

func (m *Metrics) box(sel *goquery.Selection, width, scale float64) box {
	if OutOfFlow(sel) {
		return box{}
	}
	if Scaled(sel) {
		scale = FootnoteScale
	}

	var b box
	if sel.HasClass("block") {
		b.bottom = BlockSpacing
	}
	if h, ok := FixedHeight(sel); ok {
		if h == 0 {
			return box{}
		}
		b.height = h
		return b
	}

	tag := goquery.NodeName(sel)
	if st, ok := textStyles[tag]; ok {
		b.top, b.bottom = st.MarginTop*scale, st.MarginBottom*scale
		if tag == "li" {
			width -= ListIndent
		}
		b.height = m.textHeight(sel.Text(), width, st, scale)
		return b
	}

	switch tag {
	case "table":
		b.height = m.tableHeight(sel, width, scale)
		return b
	case "ul", "ol":
		width -= ListIndent
	}

	children := sel.Children()
	if children.Length() == 0 {
		// Bare text directly inside a container reads as a paragraph.
		if text := strings.TrimSpace(sel.Text()); text != "" {
			st := textStyles["p"]
			b.height = m.textHeight(text, width, st, scale)
		}
		return b
	}

	stacked := m.stack(children, width, scale)
	b.height = stacked.height
	b.top = max(b.top, stacked.top)
	b.bottom = max(b.bottom, stacked.bottom)
	return b
}

// stack lays children out vertically, collapsing adjacent margins. The
// first child's top margin and last child's bottom margin are returned for
// the parent to collapse with its own.
func (m *Metrics) stack(children *goquery.Selection, width, scale float64) box {
	var (
		out   box
		prev  *box
		total float64
	)
	children.Each(func(_ int, c *goquery.Selection) {
		cb := m.box(c, width, scale)
		if cb == (box{}) {
			return
		}
		if prev == nil {
			out.top = cb.top
		} else {
			total += max(prev.bottom, cb.top)
		}
		total += cb.height
		prev = &cb
	})
	if prev != nil {
		out.bottom = prev.bottom
	}
	out.height = total
	return out
}

func (m *Metrics) tableHeight(table *goquery.Selection, width, scale float64) float64 {
	var total float64
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Children().Filter("td, th")
		n := cells.Length()
		if n == 0 {
			return
		}
		colWidth := width/float64(n) - 2*CellPadding
		lines := 1
		cells.Each(func(_ int, cell *goquery.Selection) {
			st := textStyles["p"]
			st.Bold = goquery.NodeName(cell) == "th"
			lines = max(lines, m.lines(cell.Text(), colWidth, st, scale))
		})
		total += float64(lines)*textStyles["p"].LineHeight*scale + 2*CellPadding + RuleWidth
	})
	return total
}

func (m *Metrics) textHeight(text string, width float64, st Style, scale float64) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return float64(m.lines(text, width, st, scale)) * st.LineHeight * scale
}

// lines counts wrapped lines of text at the given width.
func (m *Metrics) lines(text string, width float64, st Style, scale float64) int {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return 0
	}
	fontStyle := ""
	if st.Bold {
		fontStyle = "B"
	}
	m.pdf.SetFont("Helvetica", fontStyle, st.FontSize*scale)
	if width <= 0 {
		width = 1
	}
	return max(1, len(m.pdf.SplitLines([]byte(m.tr(text)), width)))
}

// FixedHeight reads an explicit data-height attribute.
func FixedHeight(sel *goquery.Selection) (float64, bool) {
	raw, ok := sel.Attr("data-height")
	if !ok {
		return 0, false
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "px"), 64)
	if err != nil || h < 0 {
		return 0, false
	}
	return h, true
}

// OutOfFlow reports elements that take no vertical space in the column.
func OutOfFlow(sel *goquery.Selection) bool {
	switch goquery.NodeName(sel) {
	case "style", "script", "head", "title", "meta":
		return true
	}
	return sel.HasClass("watermark") || sel.HasClass("page-footer")
}

// Scaled reports elements whose text is set at FootnoteScale.
func Scaled(sel *goquery.Selection) bool {
	return sel.HasClass("footnote-group") || sel.HasClass("page-footnotes")
}
