package cmd

import (
	"github.com/gaurav-prasanna/payreport/core/normalize"
	"github.com/gaurav-prasanna/payreport/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report generation HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default: configured server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	assembler, err := newAssembler(cfg)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if flagAddr != "" {
		addr = flagAddr
	}
	api := server.NewWebAPI(*logger, server.Config{
		Addr:            addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DefaultFormat:   cfg.Output.Format,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Dependencies: server.Dependencies{
			Generator:  assembler,
			Normalizer: normalize.New(),
		},
	})
	return api.Start(ctx)
}
