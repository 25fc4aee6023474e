// Package report holds the pay-transparency report data that the layout
// pipeline consumes. It is produced upstream by the report-computation
// service and arrives as JSON.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrInvalid is returned when report data fails validation.
var ErrInvalid = errors.New("invalid report data")

// Category is a pay statistic category.
type Category string

const (
	HourlyPay     Category = "hourly_pay"
	OvertimePay   Category = "overtime_pay"
	OvertimeHours Category = "overtime_hours"
	BonusPay      Category = "bonus_pay"
)

// Categories lists the statistic categories in report order.
var Categories = []Category{HourlyPay, OvertimePay, OvertimeHours, BonusPay}

// Title returns the human-readable heading for a category.
func (c Category) Title() string {
	switch c {
	case HourlyPay:
		return "Hourly Pay"
	case OvertimePay:
		return "Overtime Pay"
	case OvertimeHours:
		return "Overtime Hours"
	case BonusPay:
		return "Bonus Pay"
	default:
		return strings.ReplaceAll(string(c), "_", " ")
	}
}

// GenderGap is the pay gap of one gender group relative to the reference group.
type GenderGap struct {
	Gender     string  `json:"gender"`
	MeanGap    float64 `json:"mean_gap"`
	MedianGap  float64 `json:"median_gap"`
	Suppressed bool    `json:"suppressed"`
}

// Statistic is the computed gap data for one category.
type Statistic struct {
	Category Category    `json:"category"`
	Gaps     []GenderGap `json:"gaps"`
	// Suppressed marks the whole category as withheld for small sample size.
	Suppressed bool `json:"suppressed"`
}

// Visible reports whether any part of the statistic may be published.
func (s Statistic) Visible() bool {
	if s.Suppressed {
		return false
	}
	for _, g := range s.Gaps {
		if !g.Suppressed {
			return true
		}
	}
	return false
}

// Quartile is the gender distribution of one hourly pay quartile.
type Quartile struct {
	Label        string             `json:"label"`
	Distribution map[string]float64 `json:"distribution"`
}

// Point is one labelled value in a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a rendered chart with a fixed height.
type Chart struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Height float64 `json:"height"`
	Series []Point `json:"series"`
	// Optional charts are omitted when all their points are zero.
	Optional bool `json:"optional"`
}

// Table is a summary table.
type Table struct {
	ID      string     `json:"id"`
	Caption string     `json:"caption"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Employer identifies the reporting employer.
type Employer struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	NAICSCode     string `json:"naics_code"`
	EmployeeCount string `json:"employee_count"`
}

// Period is the reporting period.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Footnote is one footnote entry; footnotes sharing a Group are placed together.
type Footnote struct {
	Group  string `json:"group"`
	Marker string `json:"marker"`
	Text   string `json:"text"`
}

// Data is a fully populated report-data structure.
type Data struct {
	Employer        Employer          `json:"employer"`
	Period          Period            `json:"period"`
	Draft           bool              `json:"draft"`
	Statistics      []Statistic       `json:"statistics"`
	Quartiles       []Quartile        `json:"quartiles"`
	Charts          []Chart           `json:"charts"`
	Tables          []Table           `json:"tables"`
	Statement       string            `json:"employer_statement"`
	DataConstraints string            `json:"data_constraints"`
	Notes           map[string]string `json:"explanatory_notes"`
	Footnotes       []Footnote        `json:"footnotes"`
}

// Decode reads and validates report data from r.
func Decode(r io.Reader) (*Data, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var d Data
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decoding JSON: %w", ErrInvalid, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the fields the layout pipeline depends on.
func (d *Data) Validate() error {
	if strings.TrimSpace(d.Employer.Name) == "" {
		return fmt.Errorf("%w: employer name is required", ErrInvalid)
	}
	if !d.Period.Start.IsZero() && !d.Period.End.IsZero() && d.Period.End.Before(d.Period.Start) {
		return fmt.Errorf("%w: period ends before it starts", ErrInvalid)
	}
	for i, c := range d.Charts {
		if c.Height < 0 {
			return fmt.Errorf("%w: chart %d has negative height", ErrInvalid, i)
		}
	}
	for i, t := range d.Tables {
		for j, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return fmt.Errorf("%w: table %d row %d has %d cells, want %d", ErrInvalid, i, j, len(row), len(t.Columns))
			}
		}
	}
	return nil
}

// AllSuppressed reports whether no statistic can be published.
func (d *Data) AllSuppressed() bool {
	for _, s := range d.Statistics {
		if s.Visible() {
			return false
		}
	}
	return true
}

// Title is the document title.
func (d *Data) Title() string {
	if d.Period.End.IsZero() {
		return "Pay Transparency Report: " + d.Employer.Name
	}
	return fmt.Sprintf("Pay Transparency Report: %s (%d)", d.Employer.Name, d.Period.End.Year())
}

// FootnoteGroups returns footnotes grouped by Group, in first-seen order.
func (d *Data) FootnoteGroups() [][]Footnote {
	var (
		order  []string
		groups = make(map[string][]Footnote)
	)
	for _, f := range d.Footnotes {
		if _, ok := groups[f.Group]; !ok {
			order = append(order, f.Group)
		}
		groups[f.Group] = append(groups[f.Group], f)
	}
	out := make([][]Footnote, 0, len(order))
	for _, g := range order {
		out = append(out, groups[g])
	}
	return out
}
