// Package cmd — generate command.
// This is the main command that orchestrates the pipeline:
// load → assemble (template, compact, paginate) → render → write.
//
// It handles flag validation, renderer selection, and single or --all mode.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/payreport/batch"
	"github.com/gaurav-prasanna/payreport/config"
	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/assemble"
	"github.com/gaurav-prasanna/payreport/core/dom"
	"github.com/gaurav-prasanna/payreport/core/normalize"
	"github.com/gaurav-prasanna/payreport/core/output"
	"github.com/gaurav-prasanna/payreport/core/render"
	"github.com/gaurav-prasanna/payreport/core/source"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Flag variables.
var (
	flagPDF       bool
	flagHTML      bool
	flagMarkdown  bool
	flagJSON      bool
	flagDraft     bool
	flagAll       bool
	flagOutputDir string
)

var generateCmd = &cobra.Command{
	Use:   "generate <report.json|url|dir>",
	Short: "Paginate report data and write it in the specified output format",
	Long: `Generate loads computed report data from a file or URL, lays it out on
fixed-size pages and writes the result (PDF, HTML, Markdown, or JSON layout).

Without a format flag the configured default format is used. With --all the
argument is a directory of report files, or an index URL (JSON manifest or
HTML page linking to report files), and every report found is generated.

Examples:
  payreport generate report.json --pdf
  payreport generate report.json --html --output_dir ./out
  payreport generate https://reports.internal/api/employers/42/2025 --json
  payreport generate report.json --pdf --draft
  payreport generate ./reports --all --pdf --output_dir ./out`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	// Output format flags (mutually exclusive).
	generateCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")
	generateCmd.Flags().BoolVar(&flagHTML, "html", false, "Output paginated HTML")
	generateCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	generateCmd.Flags().BoolVar(&flagJSON, "json", false, "Output the JSON layout summary")
	generateCmd.MarkFlagsMutuallyExclusive("pdf", "html", "markdown", "json")

	generateCmd.Flags().BoolVar(&flagDraft, "draft", false, "Force draft mode (watermark every page)")
	generateCmd.Flags().BoolVar(&flagAll, "all", false, "Generate every report in a directory or index")
	generateCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: configured directory or current directory)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format := selectFormat(cfg)
	renderer, err := render.ForFormat(format, normalize.New())
	if err != nil {
		return err
	}
	assembler, err := newAssembler(cfg)
	if err != nil {
		return err
	}

	dir := flagOutputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	writer, err := output.New(dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	p := &pipeline{
		loader:    source.New(),
		assembler: assembler,
		renderer:  renderer,
		pdf:       isPDF(format),
		writer:    writer,
		out:       cmd.OutOrStdout(),
	}
	if flagAll {
		return p.runAll(ctx, args[0], cmd.ErrOrStderr())
	}
	return p.runOne(ctx, args[0])
}

// pipeline carries one report from its source to a written file.
type pipeline struct {
	loader    *source.Loader
	assembler *assemble.Assembler
	renderer  core.Renderer
	pdf       bool
	writer    *output.Writer
	out       io.Writer
}

func (p *pipeline) runOne(ctx context.Context, location string) error {
	data, err := p.loader.Load(ctx, location)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if flagDraft {
		data.Draft = true
	}

	var (
		out []byte
		doc *core.Document
	)
	if p.pdf {
		out, doc, err = p.assembler.RenderPDF(ctx, data)
	} else {
		out, doc, err = p.assembler.Render(ctx, data, p.renderer)
	}
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	path, err := p.writer.Write(data, out, p.renderer.Extension())
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("document", doc.ID).Str("path", path).Int("pages", len(doc.Pages)).Msg("report generated")
	fmt.Fprintf(p.out, "✓ Written: %s (%d pages)\n", path, len(doc.Pages))
	return nil
}

// runAll generates every report discovered under location. A failing
// report is reported and skipped; the run fails only if every report fails.
func (p *pipeline) runAll(ctx context.Context, location string, errOut io.Writer) error {
	queue, err := batch.NewDiscoverer(nil).Discover(ctx, location)
	if err != nil {
		return fmt.Errorf("discovering reports: %w", err)
	}
	total := queue.Len()
	if total == 0 {
		return fmt.Errorf("no report files found in %s", location)
	}
	fmt.Fprintf(p.out, "Found %d reports to generate\n", total)

	for loc, ok := queue.Next(); ok; loc, ok = queue.Next() {
		fmt.Fprintf(p.out, "[%d/%d] %s\n", queue.Processed()+1, total, loc)
		err := p.runOne(ctx, loc)
		if err != nil {
			fmt.Fprintf(errOut, "  ✗ Error: %v\n", err)
		}
		queue.Done(loc, err)
	}

	failed := len(queue.Failures())
	if failed > 0 {
		fmt.Fprintf(errOut, "\n%d/%d reports failed\n", failed, total)
	}
	if failed == total {
		return errors.New("every report failed")
	}
	return nil
}

// newAssembler wires the goquery surface, with the PDF renderer as its
// rasterizer, into an assembler.
func newAssembler(c *config.Config) (*assemble.Assembler, error) {
	if c == nil {
		return nil, errors.New("configuration not loaded")
	}
	ac := c.Assembler()
	pdf := render.NewPDFRenderer()
	pdf.Watermark = ac.Watermark
	surfaces := dom.NewFactory(dom.Options{Size: ac.Size, Rasterizer: pdf})
	return assemble.New(surfaces, ac)
}

// isPDF reports whether format is rasterized from the live surface.
func isPDF(format string) bool {
	return strings.EqualFold(strings.TrimSpace(format), "pdf")
}

// selectFormat returns the format chosen by flag, or the configured default.
func selectFormat(c *config.Config) string {
	switch {
	case flagPDF:
		return "pdf"
	case flagHTML:
		return "html"
	case flagMarkdown:
		return "markdown"
	case flagJSON:
		return "json"
	default:
		return c.Output.Format
	}
}
