// Package config loads payreport settings from an optional config file,
// PAYREPORT_* environment variables and built-in defaults, in that order
// of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/assemble"
	"github.com/gaurav-prasanna/payreport/core/layout"
	"github.com/gaurav-prasanna/payreport/core/render"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PAYREPORT_PAGE_HEIGHT.
const EnvPrefix = "PAYREPORT"

// Page is the page geometry in px at 72 dpi.
type Page struct {
	Width        float64 `mapstructure:"width"`
	Height       float64 `mapstructure:"height"`
	MarginTop    float64 `mapstructure:"margin_top"`
	MarginBottom float64 `mapstructure:"margin_bottom"`
	MarginSide   float64 `mapstructure:"margin_side"`
}

// Layout holds placement policy.
type Layout struct {
	Overflow  string `mapstructure:"overflow"`
	Watermark string `mapstructure:"watermark"`
}

// Server holds HTTP API settings.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// Output holds CLI output defaults.
type Output struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

// Config is the full payreport configuration.
type Config struct {
	Page     Page   `mapstructure:"page"`
	Layout   Layout `mapstructure:"layout"`
	Server   Server `mapstructure:"server"`
	Output   Output `mapstructure:"output"`
	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("page.width", 595)
	v.SetDefault("page.height", 842)
	v.SetDefault("page.margin_top", 48)
	v.SetDefault("page.margin_bottom", 48)
	v.SetDefault("page.margin_side", 48)
	v.SetDefault("layout.overflow", string(layout.OverflowForce))
	v.SetDefault("layout.watermark", "DRAFT")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("output.format", "pdf")
	v.SetDefault("output.dir", "")
	v.SetDefault("log_level", "info")
}

// Load reads configuration. path may be empty, in which case only the
// environment and defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration can drive a layout run.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Assembler().PageConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Page.Width-2*c.Page.MarginSide <= 0 {
		errs = append(errs, fmt.Errorf("page width %v leaves no room inside side margins %v", c.Page.Width, c.Page.MarginSide))
	}
	if _, err := layout.ParseOverflowPolicy(c.Layout.Overflow); err != nil {
		errs = append(errs, err)
	}
	if _, err := render.ForFormat(c.Output.Format, nil); err != nil {
		errs = append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PageSize returns the page geometry as the core type.
func (c *Config) PageSize() core.PageSize {
	return core.PageSize{
		Width:        c.Page.Width,
		Height:       c.Page.Height,
		MarginTop:    c.Page.MarginTop,
		MarginBottom: c.Page.MarginBottom,
		MarginSide:   c.Page.MarginSide,
	}
}

// Assembler returns the assembler settings.
func (c *Config) Assembler() assemble.Config {
	cfg := assemble.DefaultConfig()
	cfg.Size = c.PageSize()
	cfg.Overflow, _ = layout.ParseOverflowPolicy(c.Layout.Overflow)
	cfg.Watermark = c.Layout.Watermark
	return cfg
}

// Level returns the configured log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return l
}
