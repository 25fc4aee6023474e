// Package cmd implements the CLI commands for payreport using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gaurav-prasanna/payreport/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagVerbose bool
)

// cfg is loaded once per invocation, before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "payreport",
	Short: "payreport — paginate pay transparency reports",
	Long: `payreport lays out computed pay transparency report data onto fixed-size
pages and writes the result as PDF, HTML, Markdown, or a JSON layout summary.

Usage:
  payreport generate <report.json|url|dir> [--all] [flags]
  payreport serve [flags]`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.Load(flagConfig); err != nil {
			return err
		}
		level := cfg.Level()
		if flagVerbose {
			level = zerolog.DebugLevel
		}
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to a config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
