package main

import (
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/clausegraph/cmd/clausegraph/internal"
	"github.com/zero-day-ai/clausegraph/internal/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ClauseGraph configuration",
	}
	cmd.AddCommand(newConfigShowCmd(c), newConfigInitCmd(c))
	return cmd
}

func newConfigShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			redacted := c.cfg.Redacted()
			if c.flags.GetOutputFormat() == internal.FormatJSON {
				return c.formatter(cmd).PrintJSON(redacted)
			}
			data, err := config.Marshal(redacted)
			if err != nil {
				return internal.WrapError(internal.ExitConfigError, "failed to encode configuration", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath()
			if err := config.Save(path, config.DefaultConfig(), force); err != nil {
				return internal.WrapError(internal.ExitConfigError, "failed to write configuration", err)
			}
			return c.formatter(cmd).PrintSuccess("configuration written to " + path)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}
