package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gaurav-prasanna/payreport/core/layout"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 842.0, cfg.Page.Height)
	assert.Equal(t, 595.0, cfg.Page.Width)
	assert.Equal(t, 746.0, cfg.Assembler().PageConfig().Budget())
	assert.Equal(t, layout.OverflowForce, cfg.Assembler().Overflow)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "pdf", cfg.Output.Format)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payreport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
page:
  height: 792
  width: 612
  margin_top: 36
layout:
  overflow: reject
output:
  format: html
log_level: debug
`), 0o644))
	t.Setenv("PAYREPORT_SERVER_ADDR", "127.0.0.1:9090")
	t.Setenv("PAYREPORT_PAGE_MARGIN_BOTTOM", "36")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 792.0, cfg.Page.Height)
	assert.Equal(t, 720.0, cfg.Assembler().PageConfig().Budget())
	assert.Equal(t, layout.OverflowReject, cfg.Assembler().Overflow)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "html", cfg.Output.Format)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"margins exceed page", map[string]string{"PAYREPORT_PAGE_MARGIN_TOP": "800"}, "invalid page configuration"},
		{"side margins", map[string]string{"PAYREPORT_PAGE_MARGIN_SIDE": "400"}, "side margins"},
		{"overflow policy", map[string]string{"PAYREPORT_LAYOUT_OVERFLOW": "split"}, "unknown overflow policy"},
		{"format", map[string]string{"PAYREPORT_OUTPUT_FORMAT": "docx"}, "unknown format"},
		{"log level", map[string]string{"PAYREPORT_LOG_LEVEL": "loud"}, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
