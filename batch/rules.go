// Package batch — source filtering rules.
// Helpers to filter and normalize report locations during discovery.
package batch

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// reportExtensions are the file extensions treated as report data.
var reportExtensions = map[string]bool{
	".json": true,
}

// IsSameHost checks if rawURL is served by host.
func IsSameHost(rawURL string, host string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == host
}

// IsReportSource checks if a file path or URL names a report data file.
func IsReportSource(location string) bool {
	p := location
	if parsed, err := url.Parse(location); err == nil && parsed.Scheme != "" {
		p = parsed.Path
	}
	return reportExtensions[strings.ToLower(path.Ext(p))]
}

// NormalizeLocation strips URL fragments and cleans file paths so the same
// report is not generated twice.
func NormalizeLocation(location string) string {
	parsed, err := url.Parse(location)
	if err != nil || parsed.Scheme == "" {
		return filepath.Clean(location)
	}
	parsed.Fragment = ""
	return parsed.String()
}
