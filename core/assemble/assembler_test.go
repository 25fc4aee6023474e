package assemble_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/assemble"
	"github.com/gaurav-prasanna/payreport/core/dom"
	"github.com/gaurav-prasanna/payreport/core/layout"
	"github.com/gaurav-prasanna/payreport/core/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleData() *report.Data {
	d := &report.Data{
		Employer: report.Employer{Name: "Northwind Traders", Address: "12 Harbour St", NAICSCode: "4244", EmployeeCount: "100-249"},
		Period: report.Period{
			Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		Statement:       "We are committed to closing the gap within three reporting periods.",
		DataConstraints: "Contractors are excluded from all figures.",
		Notes: map[string]string{
			string(report.HourlyPay): "Hourly pay includes shift premiums.",
		},
		Charts: []report.Chart{
			{ID: "hourly", Title: "Hourly pay gap", Height: 220, Series: []report.Point{{Label: "Women", Value: 7.5}}},
			{ID: "bonus", Title: "Bonus pay gap", Height: 220, Optional: true, Series: []report.Point{{Label: "Women", Value: 0}}},
			{ID: "overtime", Title: "Overtime pay gap", Height: 220, Series: []report.Point{{Label: "Women", Value: 3.1}}},
		},
		Quartiles: []report.Quartile{
			{Label: "Upper", Distribution: map[string]float64{"Women": 41, "Men": 59}},
			{Label: "Lower", Distribution: map[string]float64{"Women": 55, "Men": 45}},
		},
		Footnotes: []report.Footnote{
			{Group: "method", Marker: "1", Text: "Gaps are expressed relative to men's pay."},
			{Group: "method", Marker: "2", Text: "Medians use the middle employee of each group."},
			{Group: "privacy", Marker: "3", Text: "Groups under ten employees are suppressed."},
		},
	}
	for _, c := range report.Categories {
		d.Statistics = append(d.Statistics, report.Statistic{
			Category: c,
			Gaps: []report.GenderGap{
				{Gender: "Women", MeanGap: 7.5, MedianGap: 6.2},
				{Gender: "Non-binary", Suppressed: true},
			},
		})
	}
	return d
}

func newAssembler(t *testing.T, cfg assemble.Config) *assemble.Assembler {
	t.Helper()
	a, err := assemble.New(dom.NewFactory(dom.Options{Size: cfg.Size}), cfg)
	require.NoError(t, err)
	return a
}

func TestAssemble_PaginatesFullReport(t *testing.T) {
	a := newAssembler(t, assemble.DefaultConfig())

	doc, err := a.Assemble(context.Background(), sampleData())
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Pay Transparency Report: Northwind Traders (2025)", doc.Title)
	assert.False(t, doc.Draft)
	assert.False(t, doc.Simplified)
	require.GreaterOrEqual(t, len(doc.Pages), 2)

	first := doc.Pages[0]
	require.NotEmpty(t, first.Blocks)
	assert.Equal(t, core.KindHeader, first.Blocks[0].Kind)

	for i, p := range doc.Pages {
		assert.Equal(t, i+1, p.Number)
		assert.False(t, p.Overflow, "page %d", p.Number)
		assert.LessOrEqual(t, p.Used, p.Budget, "page %d", p.Number)
		assert.NotEmpty(t, append(p.Blocks, p.Footnotes...), "page %d is empty", p.Number)
		assert.Contains(t, p.HTML, fmt.Sprintf("Page %d of %d", p.Number, len(doc.Pages)))
	}

	assert.NotContains(t, doc.HTML, `id="report-source"`)
	assert.NotContains(t, doc.HTML, "data-ref")
}

func TestAssemble_GroupOrder(t *testing.T) {
	a := newAssembler(t, assemble.DefaultConfig())

	doc, err := a.Assemble(context.Background(), sampleData())
	require.NoError(t, err)

	rank := map[core.BlockKind]int{
		core.KindHeader:    0,
		core.KindChart:     1,
		core.KindTable:     2,
		core.KindNoteGroup: 3,
	}
	last := 0
	var footnotes int
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			r, ok := rank[b.Kind]
			require.True(t, ok, "unexpected %s block in content column", b.Kind)
			assert.GreaterOrEqual(t, r, last, "%s block out of order on page %d", b.Kind, p.Number)
			last = r
		}
		for _, f := range p.Footnotes {
			assert.Equal(t, core.KindFootnoteGroup, f.Kind)
			footnotes++
		}
	}
	assert.Equal(t, 2, footnotes)
}

func TestAssemble_DropsEmptyOptionalChartAndNotes(t *testing.T) {
	a := newAssembler(t, assemble.DefaultConfig())

	doc, err := a.Assemble(context.Background(), sampleData())
	require.NoError(t, err)

	var charts, notes int
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			switch b.Kind {
			case core.KindChart:
				charts++
			case core.KindNoteGroup:
				notes++
			}
		}
	}
	assert.Equal(t, 2, charts, "all-zero optional chart is not placed")
	assert.Equal(t, 3, notes, "statement, data constraints and hourly pay")
	assert.NotContains(t, doc.HTML, `data-section="bonus_pay"`)
	assert.NotContains(t, doc.HTML, `data-section="quartiles"`)
}

func TestAssemble_DraftWatermarksEveryPage(t *testing.T) {
	a := newAssembler(t, assemble.DefaultConfig())
	d := sampleData()
	d.Draft = true

	doc, err := a.Assemble(context.Background(), d)
	require.NoError(t, err)

	assert.True(t, doc.Draft)
	for _, p := range doc.Pages {
		assert.Equal(t, 1, strings.Count(p.HTML, `class="watermark"`), "page %d", p.Number)
		assert.Contains(t, p.HTML, "DRAFT")
	}
}

func TestAssemble_InsufficientData(t *testing.T) {
	a := newAssembler(t, assemble.DefaultConfig())
	d := sampleData()
	for i := range d.Statistics {
		d.Statistics[i].Suppressed = true
	}

	doc, err := a.Assemble(context.Background(), d)
	require.NoError(t, err)

	assert.True(t, doc.Simplified)
	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Blocks, 1)
	assert.Empty(t, doc.Pages[0].Footnotes)
	assert.Equal(t, core.KindInsufficientData, doc.Pages[0].Blocks[0].Kind)
	assert.Contains(t, doc.HTML, "Insufficient Data")
	assert.NotContains(t, doc.HTML, "Hourly pay gap")
}

func TestAssemble_OversizedChart(t *testing.T) {
	d := sampleData()
	d.Charts = append(d.Charts, report.Chart{ID: "tall", Title: "Distribution", Height: 2000})

	t.Run("force places and flags the page", func(t *testing.T) {
		doc, err := newAssembler(t, assemble.DefaultConfig()).Assemble(context.Background(), d)
		require.NoError(t, err)

		flagged := 0
		for _, p := range doc.Pages {
			if p.Overflow {
				flagged++
				require.Len(t, p.Blocks, 1)
				assert.Equal(t, core.KindChart, p.Blocks[0].Kind)
			}
		}
		assert.Equal(t, 1, flagged)
	})

	t.Run("reject fails the request", func(t *testing.T) {
		cfg := assemble.DefaultConfig()
		cfg.Overflow = layout.OverflowReject
		_, err := newAssembler(t, cfg).Assemble(context.Background(), d)
		assert.ErrorIs(t, err, layout.ErrBlockTooTall)
	})
}

func TestAssemble_CanceledContext(t *testing.T) {
	a := newAssembler(t, assemble.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := a.Assemble(ctx, sampleData())
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	factory := dom.NewFactory(dom.Options{Size: assemble.DefaultConfig().Size})

	_, err := assemble.New(nil, assemble.DefaultConfig())
	assert.Error(t, err)

	cfg := assemble.DefaultConfig()
	cfg.Size.MarginTop = 800
	_, err = assemble.New(factory, cfg)
	assert.ErrorIs(t, err, layout.ErrInvalidPageConfig)

	cfg = assemble.DefaultConfig()
	cfg.Size.MarginSide = 300
	_, err = assemble.New(factory, cfg)
	assert.ErrorIs(t, err, layout.ErrInvalidPageConfig)

	cfg = assemble.DefaultConfig()
	cfg.Overflow = "split"
	_, err = assemble.New(factory, cfg)
	assert.Error(t, err)
}

type stubRenderer struct {
	got *core.Document
	err error
}

func (r *stubRenderer) Render(doc *core.Document) ([]byte, error) {
	r.got = doc
	if r.err != nil {
		return nil, r.err
	}
	return []byte(doc.Title), nil
}

func (r *stubRenderer) Extension() string   { return ".txt" }
func (r *stubRenderer) ContentType() string { return "text/plain" }

func TestRender(t *testing.T) {
	a := newAssembler(t, assemble.DefaultConfig())
	r := &stubRenderer{}

	out, doc, err := a.Render(context.Background(), sampleData(), r)
	require.NoError(t, err)
	assert.Same(t, doc, r.got)
	assert.Equal(t, doc.Title, string(out))

	r.err = errors.New("disk full")
	_, _, err = a.Render(context.Background(), sampleData(), r)
	assert.ErrorIs(t, err, r.err)
}

func TestRenderPDF_UsesLiveSurface(t *testing.T) {
	cfg := assemble.DefaultConfig()
	raster := &stubRenderer{}
	a, err := assemble.New(dom.NewFactory(dom.Options{Size: cfg.Size, Rasterizer: raster}), cfg)
	require.NoError(t, err)

	out, doc, err := a.RenderPDF(context.Background(), sampleData())
	require.NoError(t, err)
	require.NotNil(t, raster.got)
	assert.Equal(t, doc.Title, string(out), "surface reads the title from the document head")
	assert.Len(t, raster.got.Pages, len(doc.Pages))
}

// mockSurface records calls for surfaces that fail partway through a request.
type mockSurface struct {
	mock.Mock
}

func (m *mockSurface) Load(ctx context.Context, html string) error {
	return m.Called(ctx, html).Error(0)
}

func (m *mockSurface) Query(ctx context.Context, selector string) ([]core.Ref, error) {
	args := m.Called(ctx, selector)
	refs, _ := args.Get(0).([]core.Ref)
	return refs, args.Error(1)
}

func (m *mockSurface) Children(ctx context.Context, ref core.Ref, selector string) ([]core.Ref, error) {
	args := m.Called(ctx, ref, selector)
	refs, _ := args.Get(0).([]core.Ref)
	return refs, args.Error(1)
}

func (m *mockSurface) Height(ctx context.Context, ref core.Ref) (float64, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockSurface) Parent(ctx context.Context, ref core.Ref) (core.Ref, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(core.Ref), args.Error(1)
}

func (m *mockSurface) Attr(ctx context.Context, ref core.Ref, name string) (string, bool, error) {
	args := m.Called(ctx, ref, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockSurface) SetAttr(ctx context.Context, ref core.Ref, name, value string) error {
	return m.Called(ctx, ref, name, value).Error(0)
}

func (m *mockSurface) Append(ctx context.Context, parent, child core.Ref) error {
	return m.Called(ctx, parent, child).Error(0)
}

func (m *mockSurface) InsertAfter(ctx context.Context, ref core.Ref, html string) (core.Ref, error) {
	args := m.Called(ctx, ref, html)
	return args.Get(0).(core.Ref), args.Error(1)
}

func (m *mockSurface) Prepend(ctx context.Context, parent core.Ref, html string) (core.Ref, error) {
	args := m.Called(ctx, parent, html)
	return args.Get(0).(core.Ref), args.Error(1)
}

func (m *mockSurface) SetText(ctx context.Context, ref core.Ref, text string) error {
	return m.Called(ctx, ref, text).Error(0)
}

func (m *mockSurface) Remove(ctx context.Context, ref core.Ref) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockSurface) OuterHTML(ctx context.Context, ref core.Ref) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *mockSurface) HTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockSurface) PDF(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockSurface) Close() error {
	return m.Called().Error(0)
}

func TestAssemble_ReleasesSurfaceOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *mockSurface, boom error)
	}{
		{
			name: "load fails",
			setup: func(m *mockSurface, boom error) {
				m.On("Load", mock.Anything, mock.Anything).Return(boom)
			},
		},
		{
			name: "compaction query fails",
			setup: func(m *mockSurface, boom error) {
				m.On("Load", mock.Anything, mock.Anything).Return(nil)
				m.On("Query", mock.Anything, ".explanatory-notes").Return(nil, boom)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boom := errors.New("surface crashed")
			m := &mockSurface{}
			tt.setup(m, boom)
			m.On("Close").Return(nil).Once()

			a, err := assemble.New(func(context.Context) (core.Surface, error) { return m, nil }, assemble.DefaultConfig())
			require.NoError(t, err)

			doc, err := a.Assemble(context.Background(), sampleData())
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, boom)
			m.AssertExpectations(t)
		})
	}
}

func TestAssemble_SurfaceAcquisitionFails(t *testing.T) {
	boom := errors.New("no surfaces available")
	a, err := assemble.New(func(context.Context) (core.Surface, error) { return nil, boom }, assemble.DefaultConfig())
	require.NoError(t, err)

	_, err = a.Assemble(context.Background(), sampleData())
	assert.ErrorIs(t, err, boom)
}

type failingTemplate struct{}

func (failingTemplate) Render(*report.Data) (string, error) {
	return "", errors.New("template broken")
}

func TestAssemble_TemplateFailure(t *testing.T) {
	cfg := assemble.DefaultConfig()
	a, err := assemble.New(dom.NewFactory(dom.Options{Size: cfg.Size}), cfg, assemble.WithTemplater(failingTemplate{}))
	require.NoError(t, err)

	_, err = a.Assemble(context.Background(), sampleData())
	assert.ErrorContains(t, err, "template broken")
}
