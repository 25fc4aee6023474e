// Package output handles file naming and writing for generated reports.
// Filenames are derived from the employer and reporting year, e.g.
// northwind_traders_2025_pay_transparency_report.pdf, with a _draft suffix
// for drafts.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/payreport/core/report"
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Write stores data under the filename derived from d and returns its path.
func (w *Writer) Write(d *report.Data, data []byte, ext string) (string, error) {
	path := filepath.Join(w.OutputDir, Filename(d)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Filename returns the base filename for d, without extension.
func Filename(d *report.Data) string {
	parts := []string{sanitize(d.Employer.Name)}
	if !d.Period.End.IsZero() {
		parts = append(parts, strconv.Itoa(d.Period.End.Year()))
	}
	parts = append(parts, "pay_transparency_report")
	if d.Draft {
		parts = append(parts, "draft")
	}
	return strings.Join(parts, "_")
}

// sanitize lowercases s and collapses runs of non-alphanumeric characters
// into single underscores.
func sanitize(s string) string {
	var b strings.Builder
	under := false
	for _, ch := range strings.ToLower(s) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
			under = false
			continue
		}
		if !under && b.Len() > 0 {
			b.WriteRune('_')
			under = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "employer"
	}
	return out
}
