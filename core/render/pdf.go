// Package render — PDF renderer.
// Draws each finalized page onto one PDF sheet using gofpdf, with the
// same Helvetica metrics and box model the measure package paginated
// with. Charts are drawn as horizontal bar charts inside their fixed
// height; draft documents carry a diagonal watermark.
package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/measure"
	"github.com/jung-kurt/gofpdf"
)

const (
	barHeight  = 10
	barSpacing = 6
	chartPad   = 8
)

// PDFRenderer renders a paginated document as PDF.
type PDFRenderer struct {
	// Watermark is drawn across every page of a draft.
	Watermark string
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Watermark: "DRAFT"}
}

// Render draws doc, one sheet per page. Content on an overflow page that
// runs past the bottom margin continues on an extra sheet.
func (r *PDFRenderer) Render(doc *core.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("rendering PDF: nil document")
	}
	size := doc.Size
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("payreport", false)
	pdf.SetMargins(size.MarginSide, size.MarginTop, size.MarginSide)
	pdf.SetAutoPageBreak(true, size.MarginBottom)

	w := &pdfWriter{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		left:  size.MarginSide,
		width: size.Width - 2*size.MarginSide,
	}
	for _, page := range doc.Pages {
		if err := w.page(doc, page, r.Watermark); err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
	}
	if len(doc.Pages) == 0 {
		pdf.AddPage()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// ContentType returns the MIME type of PDF output.
func (r *PDFRenderer) ContentType() string {
	return "application/pdf"
}

type pdfWriter struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	left  float64
	width float64
	// pending is the bottom margin of the last drawn element, collapsed
	// with the next element's top margin.
	pending float64
}

func (w *pdfWriter) page(doc *core.Document, page core.DocumentPage, watermark string) error {
	sel, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return fmt.Errorf("parsing page markup: %w", err)
	}
	w.pdf.AddPage()
	w.pending = 0

	if doc.Draft && watermark != "" {
		w.watermark(doc.Size, watermark)
	}
	sel.Find(core.PageContentSelector + ", " + core.PageFootnoteSelector).Each(func(_ int, zone *goquery.Selection) {
		scale := 1.0
		if measure.Scaled(zone) {
			scale = measure.FootnoteScale
		}
		w.children(zone, w.left, w.width, scale)
	})
	if footer := strings.TrimSpace(sel.Find(core.PageFooterSelector).First().Text()); footer != "" {
		w.footer(doc.Size, footer)
	}
	return w.pdf.Error()
}

func (w *pdfWriter) watermark(size core.PageSize, text string) {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "B", 96)
	pdf.SetTextColor(220, 220, 220)
	cx, cy := size.Width/2, size.Height/2
	tw := pdf.GetStringWidth(text)
	pdf.TransformBegin()
	pdf.TransformRotate(45, cx, cy)
	pdf.Text(cx-tw/2, cy+32, text)
	pdf.TransformEnd()
	pdf.SetTextColor(0, 0, 0)
}

func (w *pdfWriter) footer(size core.PageSize, text string) {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(110, 110, 110)
	text = w.tr(text)
	pdf.Text((size.Width-pdf.GetStringWidth(text))/2, size.Height-size.MarginBottom/2, text)
	pdf.SetTextColor(0, 0, 0)
}

// element draws sel at the current position, mirroring measure's box model.
func (w *pdfWriter) element(sel *goquery.Selection, x, width, scale float64) {
	if measure.OutOfFlow(sel) {
		return
	}
	if measure.Scaled(sel) {
		scale = measure.FootnoteScale
	}
	block := sel.HasClass("block")

	if h, ok := measure.FixedHeight(sel); ok {
		if h == 0 {
			return
		}
		w.advance(0)
		w.chart(sel, x, width, h)
		w.finish(block, 0)
		return
	}

	tag := goquery.NodeName(sel)
	if st, ok := measure.StyleFor(tag); ok {
		prefix := ""
		if tag == "li" {
			x += measure.ListIndent
			width -= measure.ListIndent
			prefix = "• "
		}
		w.advance(st.MarginTop * scale)
		w.text(prefix+sel.Text(), x, width, st, scale)
		w.finish(block, st.MarginBottom*scale)
		return
	}

	switch tag {
	case "table":
		w.advance(0)
		w.table(sel, x, width, scale)
		w.finish(block, 0)
		return
	case "ul", "ol":
		width -= measure.ListIndent
	}

	if sel.Children().Length() == 0 {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			st, _ := measure.StyleFor("p")
			w.advance(st.MarginTop * scale)
			w.text(text, x, width, st, scale)
			w.finish(block, st.MarginBottom*scale)
		} else if block {
			w.finish(block, 0)
		}
		return
	}
	w.children(sel, x, width, scale)
	w.finish(block, 0)
}

func (w *pdfWriter) children(sel *goquery.Selection, x, width, scale float64) {
	sel.Children().Each(func(_ int, c *goquery.Selection) {
		w.element(c, x, width, scale)
	})
}

// advance moves down by the collapsed margin between the previous element
// and one with the given top margin.
func (w *pdfWriter) advance(top float64) {
	if gap := math.Max(w.pending, top); gap > 0 {
		w.pdf.Ln(gap)
	}
	w.pending = 0
}

func (w *pdfWriter) finish(block bool, bottom float64) {
	if block {
		bottom = math.Max(bottom, measure.BlockSpacing)
	}
	w.pending = math.Max(w.pending, bottom)
}

func (w *pdfWriter) font(st measure.Style, scale float64) {
	style := ""
	if st.Bold {
		style = "B"
	}
	w.pdf.SetFont("Helvetica", style, st.FontSize*scale)
}

func (w *pdfWriter) text(text string, x, width float64, st measure.Style, scale float64) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return
	}
	w.font(st, scale)
	w.pdf.SetX(x)
	w.pdf.MultiCell(width, st.LineHeight*scale, w.tr(text), "", "L", false)
}

func (w *pdfWriter) table(table *goquery.Selection, x, width, scale float64) {
	pdf := w.pdf
	p, _ := measure.StyleFor("p")
	lh := p.LineHeight * scale

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Children().Filter("td, th")
		n := cells.Length()
		if n == 0 {
			return
		}
		colWidth := width / float64(n)
		top := pdf.GetY()
		bottom := top
		cells.Each(func(i int, cell *goquery.Selection) {
			st := p
			st.Bold = goquery.NodeName(cell) == "th"
			w.font(st, scale)
			pdf.SetXY(x+float64(i)*colWidth+measure.CellPadding, top+measure.CellPadding)
			pdf.MultiCell(colWidth-2*measure.CellPadding, lh, w.tr(strings.TrimSpace(cell.Text())), "", "L", false)
			bottom = math.Max(bottom, pdf.GetY())
		})
		y := bottom + measure.CellPadding
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(x, y, x+width, y)
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetXY(x, y+measure.RuleWidth)
	})
}

// chart draws a bar chart of the block's series inside its fixed height.
func (w *pdfWriter) chart(sel *goquery.Selection, x, width, height float64) {
	pdf := w.pdf
	top := pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(x, top, width, height, "D")
	pdf.SetDrawColor(0, 0, 0)

	h3, _ := measure.StyleFor("h3")
	w.font(h3, 1)
	pdf.SetXY(x+chartPad, top+chartPad)
	pdf.CellFormat(width-2*chartPad, h3.LineHeight, w.tr(strings.TrimSpace(sel.Find("h3").First().Text())), "", 1, "L", false, 0, "")

	type bar struct {
		label string
		value float64
	}
	var (
		bars []bar
		peak float64
	)
	sel.Find("li").Each(func(_ int, li *goquery.Selection) {
		v, err := strconv.ParseFloat(li.AttrOr("data-value", ""), 64)
		if err != nil {
			return
		}
		label, _, _ := strings.Cut(strings.TrimSpace(li.Text()), ":")
		bars = append(bars, bar{label: label, value: v})
		peak = math.Max(peak, math.Abs(v))
	})

	labelWidth := width * 0.3
	track := width - labelWidth - 3*chartPad
	y := top + chartPad + h3.LineHeight + barSpacing
	pdf.SetFont("Helvetica", "", 8)
	for _, b := range bars {
		if y+barHeight > top+height-chartPad {
			break
		}
		pdf.SetXY(x+chartPad, y)
		pdf.CellFormat(labelWidth, barHeight, w.tr(b.label), "", 0, "L", false, 0, "")
		length := 0.0
		if peak > 0 {
			length = track * math.Abs(b.value) / peak
		}
		pdf.SetFillColor(70, 110, 160)
		pdf.Rect(x+chartPad+labelWidth, y, math.Max(length, 0.5), barHeight, "F")
		pdf.SetXY(x+chartPad+labelWidth+length+2, y)
		pdf.CellFormat(40, barHeight, strconv.FormatFloat(b.value, 'f', 2, 64), "", 0, "L", false, 0, "")
		y += barHeight + barSpacing
	}
	pdf.SetXY(x, top+height)
}
