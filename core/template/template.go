// Package template renders report data into the initial, unpaginated HTML
// document that the layout engine loads onto a rendering surface.
//
// Every unit of content is an element with class "block" and a data-kind
// attribute. Blocks live inside #report-source, grouped by data-group in
// the order the assembler places them: charts, tables, notes, footnotes.
package template

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"

	"github.com/gaurav-prasanna/payreport/core/report"
)

// Selectors shared with the assembler.
const (
	SourceSelector       = "#report-source"
	HeaderSelector       = "#report-source > .block[data-kind=header]"
	ChartSelector        = "[data-group=charts] > .block"
	TableSelector        = "[data-group=tables] > .block"
	NoteSelector         = ".explanatory-notes > .block"
	FootnoteSelector     = ".footnotes > .block"
	InsufficientSelector = "[data-group=insufficient] > .block"
)

// DefaultChartHeight is used for charts that arrive without a height.
const DefaultChartHeight = 220

// NoteSections lists the explanatory-note containers emitted for every
// report, in order. A section without a note renders as an empty container.
var NoteSections = []string{
	"statement",
	"data_constraints",
	string(report.HourlyPay),
	string(report.OvertimePay),
	string(report.OvertimeHours),
	string(report.BonusPay),
	"quartiles",
}

//go:embed report.html.tmpl
var reportTemplate string

//go:embed report.css
var reportCSS string

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"px":    func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	"pct":   func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" },
	"value": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}).Parse(reportTemplate))

type noteView struct {
	Key   string
	Title string
	Text  string
}

type gapRow struct {
	Gender     string
	MeanGap    float64
	MedianGap  float64
	Suppressed bool
}

type statView struct {
	Title string
	Rows  []gapRow
}

type quartileView struct {
	Genders []string
	Rows    []quartileRow
}

type quartileRow struct {
	Label  string
	Values []float64
}

type view struct {
	Title        string
	CSS          template.CSS
	Draft        bool
	Data         *report.Data
	PeriodLabel  string
	Insufficient bool
	Charts       []report.Chart
	Stats        []statView
	Quartiles    *quartileView
	Tables       []report.Table
	Notes        []noteView
	Footnotes    [][]report.Footnote
}

// Renderer renders report data into unpaginated HTML.
type Renderer struct{}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render produces the unpaginated HTML document for d. When every
// statistic is suppressed the document holds a single insufficient-data block.
func (r *Renderer) Render(d *report.Data) (string, error) {
	if d == nil {
		return "", fmt.Errorf("rendering template: nil report data")
	}

	v := view{
		Title:        d.Title(),
		CSS:          template.CSS(reportCSS),
		Draft:        d.Draft,
		Data:         d,
		PeriodLabel:  periodLabel(d.Period),
		Insufficient: d.AllSuppressed(),
	}
	if !v.Insufficient {
		v.Charts = charts(d.Charts)
		v.Stats = statViews(d.Statistics)
		v.Quartiles = quartiles(d.Quartiles)
		v.Tables = d.Tables
		v.Notes = notes(d)
		v.Footnotes = d.FootnoteGroups()
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return buf.String(), nil
}

func periodLabel(p report.Period) string {
	if p.Start.IsZero() || p.End.IsZero() {
		return ""
	}
	return p.Start.Format("January 2, 2006") + " – " + p.End.Format("January 2, 2006")
}

// charts collapses optional charts with no data to zero height so the
// layout engine skips them.
func charts(in []report.Chart) []report.Chart {
	out := make([]report.Chart, 0, len(in))
	for _, c := range in {
		switch {
		case c.Optional && allZero(c.Series):
			c.Height = 0
			c.Series = nil
		case c.Height == 0:
			c.Height = DefaultChartHeight
		}
		out = append(out, c)
	}
	return out
}

func allZero(points []report.Point) bool {
	for _, p := range points {
		if p.Value != 0 {
			return false
		}
	}
	return true
}

// statViews keeps only publishable statistics, in category order.
func statViews(stats []report.Statistic) []statView {
	byCat := make(map[report.Category]report.Statistic, len(stats))
	for _, s := range stats {
		byCat[s.Category] = s
	}

	var out []statView
	for _, c := range report.Categories {
		s, ok := byCat[c]
		if !ok || !s.Visible() {
			continue
		}
		sv := statView{Title: c.Title()}
		for _, g := range s.Gaps {
			sv.Rows = append(sv.Rows, gapRow(g))
		}
		out = append(out, sv)
	}
	return out
}

func quartiles(qs []report.Quartile) *quartileView {
	if len(qs) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var genders []string
	for _, q := range qs {
		for g := range q.Distribution {
			if !seen[g] {
				seen[g] = true
				genders = append(genders, g)
			}
		}
	}
	sort.Strings(genders)

	qv := &quartileView{Genders: genders}
	for _, q := range qs {
		row := quartileRow{Label: q.Label}
		for _, g := range genders {
			row.Values = append(row.Values, q.Distribution[g])
		}
		qv.Rows = append(qv.Rows, row)
	}
	return qv
}

func notes(d *report.Data) []noteView {
	out := make([]noteView, 0, len(NoteSections))
	for _, key := range NoteSections {
		nv := noteView{Key: key, Title: noteTitle(key)}
		switch key {
		case "statement":
			nv.Text = d.Statement
		case "data_constraints":
			nv.Text = d.DataConstraints
		default:
			nv.Text = d.Notes[key]
		}
		out = append(out, nv)
	}
	return out
}

func noteTitle(key string) string {
	switch key {
	case "statement":
		return "Employer Statement"
	case "data_constraints":
		return "Data Constraints"
	case "quartiles":
		return "Pay Quartiles"
	default:
		return report.Category(key).Title()
	}
}
