package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/clausegraph/cmd/clausegraph/internal"
	"github.com/zero-day-ai/clausegraph/internal/app"
	"github.com/zero-day-ai/clausegraph/internal/pipeline"
)

type analyzeOptions struct {
	parallel int
	source   string
}

// analyzeResult pairs one input with its outcome.
type analyzeResult struct {
	Source       string         `json:"source"`
	State        pipeline.State `json:"state"`
	Critical     bool           `json:"has_critical_findings"`
	ArchiveError string         `json:"archive_error,omitempty"`
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Analyze contract text and print a compliance report",
		Long: `Analyze reads contract text from each file (or stdin when no file or "-"
is given), builds the knowledge graph and prints the compliance report.

Every input is analyzed in isolation: the graph is cleared before each input
is persisted, so a report only ever covers its own clauses. With --parallel,
extraction runs concurrently while the graph stages run one input at a time.

Exit code 2 means at least one report has critical findings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd, args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.parallel, "parallel", 1, "Number of inputs to analyze concurrently")
	cmd.Flags().StringVar(&opts.source, "source", "", "Source label recorded for stdin input (default \"stdin\")")
	return cmd
}

func (c *cli) runAnalyze(cmd *cobra.Command, args []string, opts *analyzeOptions) error {
	if opts.parallel < 1 {
		return internal.NewCLIError(internal.ExitError, "--parallel must be at least 1")
	}
	if len(args) == 0 {
		args = []string{"-"}
	}

	type input struct{ source, text string }
	inputs := make([]input, 0, len(args))
	for _, arg := range args {
		text, source, err := readInput(cmd.InOrStdin(), arg, opts.source)
		if err != nil {
			return err
		}
		inputs = append(inputs, input{source: source, text: text})
	}

	return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
		results := make([]analyzeResult, len(inputs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.parallel)
		for i, in := range inputs {
			g.Go(func() error {
				state, err := a.Analyze(gctx, in.source, in.text)
				results[i] = analyzeResult{
					Source:   in.source,
					State:    state,
					Critical: state.HasCriticalFindings(),
				}
				if err != nil {
					results[i].ArchiveError = err.Error()
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.printAnalyzeResults(cmd, results); err != nil {
			return err
		}
		for _, r := range results {
			if r.Critical {
				return internal.ErrCriticalFindings
			}
		}
		return nil
	})
}

func readInput(stdin io.Reader, arg, stdinSource string) (text, source string, err error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", internal.WrapError(internal.ExitError, "failed to read stdin", err)
		}
		if stdinSource == "" {
			stdinSource = "stdin"
		}
		return string(data), stdinSource, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", "", internal.WrapError(internal.ExitError, fmt.Sprintf("failed to read %s", arg), err)
	}
	return string(data), arg, nil
}

func (c *cli) printAnalyzeResults(cmd *cobra.Command, results []analyzeResult) error {
	if c.flags.GetOutputFormat() == internal.FormatJSON {
		if len(results) == 1 {
			return c.formatter(cmd).PrintJSON(results[0])
		}
		return c.formatter(cmd).PrintJSON(results)
	}

	out := cmd.OutOrStdout()
	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "==> %s <==\n", r.Source)
		}
		fmt.Fprintln(out, r.State.Report)
		if len(r.State.Errors) > 0 && !c.flags.IsQuiet() {
			fmt.Fprintln(out, "Errors:")
			for _, e := range r.State.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
		}
		if r.ArchiveError != "" {
			cmd.PrintErrf("Warning: run %s was not archived: %s\n", r.State.RunID, r.ArchiveError)
		}
	}
	return nil
}
