package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/clausegraph/internal/api"
	"github.com/zero-day-ai/clausegraph/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Address = addr
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return api.New(c.cfg.Server, a, c.logger).Serve(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.address)")
	return cmd
}
