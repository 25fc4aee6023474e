package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	d, err := Decode(strings.NewReader(`{
		"employer": {"name": "Northwind Traders"},
		"period": {"start": "2025-01-01T00:00:00Z", "end": "2025-12-31T00:00:00Z"},
		"statistics": [{"category": "hourly_pay", "gaps": [{"gender": "Women", "mean_gap": 7.5, "median_gap": 6}]}],
		"footnotes": [{"group": "a", "marker": "1", "text": "x"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Northwind Traders", d.Employer.Name)
	assert.Equal(t, "Pay Transparency Report: Northwind Traders (2025)", d.Title())
	assert.False(t, d.AllSuppressed())
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"employer":`, "decoding JSON"},
		{"unknown field", `{"employer": {"name": "N"}, "colour": "red"}`, "unknown field"},
		{"missing employer", `{}`, "employer name is required"},
		{"period reversed", `{"employer": {"name": "N"}, "period": {"start": "2025-12-31T00:00:00Z", "end": "2025-01-01T00:00:00Z"}}`, "period ends before"},
		{"negative chart", `{"employer": {"name": "N"}, "charts": [{"height": -1}]}`, "negative height"},
		{"ragged table", `{"employer": {"name": "N"}, "tables": [{"columns": ["a", "b"], "rows": [["1"]]}]}`, "has 1 cells, want 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.body))
			require.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestAllSuppressed(t *testing.T) {
	d := &Data{}
	assert.True(t, d.AllSuppressed(), "no statistics")

	d.Statistics = []Statistic{
		{Category: HourlyPay, Suppressed: true, Gaps: []GenderGap{{Gender: "Women"}}},
		{Category: BonusPay, Gaps: []GenderGap{{Gender: "Women", Suppressed: true}}},
	}
	assert.True(t, d.AllSuppressed())

	d.Statistics = append(d.Statistics, Statistic{Category: OvertimePay, Gaps: []GenderGap{{Gender: "Women"}}})
	assert.False(t, d.AllSuppressed())
}

func TestTitle(t *testing.T) {
	d := &Data{Employer: Employer{Name: "Northwind Traders"}}
	assert.Equal(t, "Pay Transparency Report: Northwind Traders", d.Title())

	d.Period.End = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Pay Transparency Report: Northwind Traders (2024)", d.Title())
}

func TestFootnoteGroups(t *testing.T) {
	d := &Data{Footnotes: []Footnote{
		{Group: "b", Marker: "1"},
		{Group: "a", Marker: "2"},
		{Group: "b", Marker: "3"},
	}}
	groups := d.FootnoteGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, []Footnote{{Group: "b", Marker: "1"}, {Group: "b", Marker: "3"}}, groups[0])
	assert.Equal(t, []Footnote{{Group: "a", Marker: "2"}}, groups[1])

	assert.Empty(t, (&Data{}).FootnoteGroups())
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "Overtime Hours", OvertimeHours.Title())
	assert.Equal(t, "shift premium", Category("shift_premium").Title())
}
