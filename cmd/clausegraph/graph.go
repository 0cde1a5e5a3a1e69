package main

import (
	"context"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/clausegraph/cmd/clausegraph/internal"
	"github.com/zero-day-ai/clausegraph/internal/app"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

func newResetCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every node and relationship in the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return internal.NewCLIError(internal.ExitError, "refusing to clear the graph without --yes")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Reset(ctx); err != nil {
					return internal.WrapError(internal.ExitGraphError, "failed to clear graph", err)
				}
				return c.formatter(cmd).PrintSuccess("graph cleared")
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion of all graph data")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connectivity to the graph database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				health := a.Health(ctx)

				if c.flags.GetOutputFormat() == internal.FormatJSON {
					if err := c.formatter(cmd).PrintJSON(health); err != nil {
						return err
					}
				} else {
					fields := []internal.Field{
						{Key: "Neo4j", Value: string(health.Status)},
						{Key: "URI", Value: health.URI},
					}
					if health.Version != "" {
						fields = append(fields, internal.Field{Key: "Server", Value: health.Name + " " + health.Version})
					}
					if health.Error != "" {
						fields = append(fields, internal.Field{Key: "Error", Value: health.Error})
					}
					fields = append(fields, internal.Field{Key: "History", Value: historyStatus(a)})
					if err := c.formatter(cmd).PrintFields(fields); err != nil {
						return err
					}
				}

				if health.Status == types.HealthStateUnhealthy {
					return internal.NewCLIError(internal.ExitGraphError, "")
				}
				return nil
			})
		},
	}
}

func historyStatus(a *app.App) string {
	if !a.HistoryEnabled() {
		return "disabled"
	}
	return a.Config().History.Path
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show node counts by label",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				stats, err := a.Stats(ctx)
				if err != nil {
					return internal.WrapError(internal.ExitGraphError, "failed to read graph statistics", err)
				}

				labels := make([]string, 0, len(stats))
				for label := range stats {
					labels = append(labels, label)
				}
				sort.Strings(labels)

				rows := make([][]string, 0, len(labels))
				for _, label := range labels {
					rows = append(rows, []string{label, strconv.FormatInt(stats[label], 10)})
				}
				return c.formatter(cmd).PrintTable([]string{"label", "count"}, rows)
			})
		},
	}
}
