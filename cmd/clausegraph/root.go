package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/clausegraph/cmd/clausegraph/internal"
	"github.com/zero-day-ai/clausegraph/internal/app"
	"github.com/zero-day-ai/clausegraph/internal/config"
	"github.com/zero-day-ai/clausegraph/internal/observability"
)

// cli carries state shared by every command of one invocation.
type cli struct {
	flags  GlobalFlags
	cfg    *config.Config
	logger *slog.Logger

	// appOptions are appended when building the App. Tests inject a store
	// opener and history here.
	appOptions []app.Option
}

func newRootCmd(opts ...app.Option) *cobra.Command {
	c := &cli{appOptions: opts}

	rootCmd := &cobra.Command{
		Use:   "clausegraph",
		Short: "ClauseGraph - contract compliance analysis on a knowledge graph",
		Long: `ClauseGraph extracts clauses, parties and relationships from contract
text, stores them in Neo4j and reports contradictions and risks.`,
		PersistentPreRunE: c.loadConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	RegisterGlobalFlags(rootCmd, &c.flags)

	rootCmd.AddCommand(
		newAnalyzeCmd(c),
		newResetCmd(c),
		newStatusCmd(c),
		newStatsCmd(c),
		newRunsCmd(c),
		newServeCmd(c),
		newConfigCmd(c),
		newVersionCmd(c),
	)
	return rootCmd
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context, rootCmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// configPath resolves --config, then $CLAUSEGRAPH_HOME, then the default home.
func (c *cli) configPath() string {
	if c.flags.ConfigFile != "" {
		return c.flags.ConfigFile
	}
	homeDir := c.flags.HomeDir
	if homeDir == "" {
		homeDir = os.Getenv("CLAUSEGRAPH_HOME")
	}
	if homeDir == "" {
		homeDir = config.DefaultHomeDir()
	}
	return config.DefaultConfigPath(homeDir)
}

// loadConfig is called before any command runs to load configuration
func (c *cli) loadConfig(cmd *cobra.Command, args []string) error {
	if err := c.flags.Validate(); err != nil {
		return err
	}

	// version and config init must work without a valid config
	if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "init" {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	loader := config.NewConfigLoader(config.NewValidator())
	var (
		cfg *config.Config
		err error
	)
	if c.flags.ConfigFile != "" {
		cfg, err = loader.Load(c.flags.ConfigFile)
	} else {
		cfg, err = loader.LoadWithDefaults(c.configPath())
	}
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to load configuration", err)
	}

	switch {
	case c.flags.IsVerbose():
		cfg.Logging.Level = "debug"
	case c.flags.IsQuiet():
		cfg.Logging.Level = "error"
	}
	c.cfg = cfg
	c.logger = observability.NewLogger(cmd.ErrOrStderr(), cfg.Logging)
	return nil
}

// withApp builds the App and tracing for one command and tears both down
// afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()

	tp, err := observability.InitTracing(ctx, c.cfg.Tracing)
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to initialize tracing", err)
	}
	defer func() {
		if err := observability.ShutdownTracing(context.Background(), tp); err != nil {
			c.logger.Warn("failed to shut down tracing", "error", err)
		}
	}()

	opts := append([]app.Option{app.WithLogger(c.logger)}, c.appOptions...)
	a, err := app.New(ctx, c.cfg, opts...)
	if err != nil {
		return internal.WrapError(internal.ExitDatabaseError, "failed to open run history", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			c.logger.Warn("failed to close application", "error", err)
		}
	}()

	return fn(ctx, a)
}

func (c *cli) formatter(cmd *cobra.Command) internal.Formatter {
	return internal.NewFormatter(c.flags.GetOutputFormat(), cmd.OutOrStdout())
}
