package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/clausegraph/cmd/clausegraph/internal"
	"github.com/zero-day-ai/clausegraph/internal/app"
	"github.com/zero-day-ai/clausegraph/internal/database"
)

func newRunsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived analysis runs",
	}
	cmd.AddCommand(newRunsListCmd(c), newRunsShowCmd(c))
	return cmd
}

func newRunsListCmd(c *cli) *cobra.Command {
	filter := database.RunFilter{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				runs, err := a.Runs(ctx, filter)
				if err != nil {
					return internal.WrapError(internal.ExitDatabaseError, "failed to list runs", err)
				}
				if c.flags.GetOutputFormat() == internal.FormatJSON {
					return c.formatter(cmd).PrintJSON(runs)
				}

				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						r.ID,
						r.CreatedAt.Local().Format(time.DateTime),
						r.Source,
						strconv.Itoa(r.ClauseCount),
						strconv.FormatBool(r.HasCritical),
						strconv.Itoa(len(r.Errors)),
					})
				}
				return c.formatter(cmd).PrintTable([]string{"id", "created", "source", "clauses", "critical", "errors"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "Number of runs to skip")
	cmd.Flags().BoolVar(&filter.CriticalOnly, "critical", false, "Only list runs with critical findings")
	return cmd
}

func newRunsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an archived run and its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				run, err := a.Run(ctx, args[0])
				if err != nil {
					return internal.WrapError(internal.ExitDatabaseError, fmt.Sprintf("failed to load run %s", args[0]), err)
				}
				if c.flags.GetOutputFormat() == internal.FormatJSON {
					return c.formatter(cmd).PrintJSON(run)
				}

				fields := []internal.Field{
					{Key: "Run", Value: run.ID},
					{Key: "Source", Value: run.Source},
					{Key: "Created", Value: run.CreatedAt.Format(time.RFC3339)},
					{Key: "Clauses", Value: strconv.Itoa(run.ClauseCount)},
					{Key: "Entities", Value: strconv.Itoa(run.EntityCount)},
					{Key: "Critical", Value: fmt.Sprintf("%t (%d issues)", run.HasCritical, run.CriticalIssues)},
				}
				for _, e := range run.Errors {
					fields = append(fields, internal.Field{Key: "Error", Value: e})
				}
				if err := c.formatter(cmd).PrintFields(fields); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out)
				fmt.Fprintln(out, run.Report)
				return nil
			})
		},
	}
}
