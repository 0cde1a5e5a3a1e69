package main

import (
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/clausegraph/cmd/clausegraph/internal"
	"github.com/zero-day-ai/clausegraph/pkg/version"
)

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.flags.GetOutputFormat() == internal.FormatJSON {
				return c.formatter(cmd).PrintJSON(version.Info())
			}
			cmd.Println(version.String())
			return nil
		},
	}
}
