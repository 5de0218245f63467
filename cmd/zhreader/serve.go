package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/japaniel/zhreader/pkg/app"
	"github.com/japaniel/zhreader/pkg/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			logger.Info("starting zhreader",
				slog.String("version", app.BuildVersion()),
				slog.String("addr", cfg.Server.Addr()),
				slog.String("database", cfg.Database.Driver),
				slog.Any("providers", cfg.Translate.ProviderList()),
			)
			return server.New(a).ListenAndServe(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")
	return cmd
}
