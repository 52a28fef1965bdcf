package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"icebergtest/internal/cli"
	"icebergtest/internal/results"
	"icebergtest/internal/stack"
	"icebergtest/internal/suite"
	"icebergtest/pkg/logging"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

type testOptions struct {
	stack     cli.StackFlags
	wait      bool
	record    bool
	reportDir string
	output    cli.OutputFlags
}

func newTestCmd(g *globalOptions) *cobra.Command {
	opts := &testOptions{}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the SQL compatibility suite against one stack",
		Long: `Assembles the selected storage, catalog and query engine, runs the SQL
suite against them and tears the stack down.

The command exits with 0 when every step passed and 1 otherwise. With
--record the outcome is written to results.yml in the database directory.`,
		Example: `  icebergtest test --storage minio --catalog nessie --query-engine trino
  icebergtest test --storage s3 --catalog glue --query-engine trino --record --report reports/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, g)
		},
	}

	cli.RegisterStackFlags(cmd, &opts.stack, true)
	cli.RegisterOutputFlags(cmd, &opts.output)
	boolToggle(cmd, &opts.wait, "wait", "Keep the stack up after the suite until enter is pressed")
	boolToggle(cmd, &opts.record, "record", "Record the outcome in results.yml")
	cmd.Flags().StringVar(&opts.reportDir, "report", "", "Directory to write a JSON report of the run to")
	return cmd
}

func (o *testOptions) run(cmd *cobra.Command, g *globalOptions) error {
	renderOpts, err := o.output.Options()
	if err != nil {
		return err
	}
	if err := o.stack.Validate(); err != nil {
		return err
	}
	sel := stack.Selection{Storage: o.stack.Storage, Catalog: o.stack.Catalog, QueryEngine: o.stack.QueryEngine}

	reg := newComponentRegistry()
	if err := checkSelection(reg, sel); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	// Narration goes to stderr when stdout carries a document.
	info := out
	if !renderOpts.Format.Tabular() {
		info = cmd.ErrOrStderr()
	}
	fmt.Fprintln(info, "Starting compatibility test run...")

	progress := cli.NewProgress(cmd.ErrOrStderr(), !cli.IsInteractive())
	runner, closeRuntime, err := g.newStackRunner(ctx, reg, progress.OnStateChange)
	if err != nil {
		return err
	}
	defer closeRuntime()

	var (
		success bool
		steps   []suite.StepResult
		runName string
		start   = time.Now()
	)
	progress.Start("Assembling " + sel.String())
	err = runner.Run(ctx, sel, func(ctx context.Context, running *stack.Running) error {
		runName = running.Env.RunName()
		progress.Update("Running SQL test suite...")

		s := suite.New(running.Env, running.Storage, running.Catalog, running.QueryEngine,
			suite.WithStepCallback(func(r suite.StepResult) {
				progress.Update(fmt.Sprintf("%s: %s", r.Test, r.Status))
			}))
		success, steps = s.Run(ctx)
		progress.Stop()

		if err := o.report(ctx, g, sel, out, info, renderOpts, runName, start, success, steps); err != nil {
			return err
		}

		if o.wait {
			_, err := running.Env.Prompt(ctx, "--wait was passed, keeping stack up. Press enter to exit")
			if !interrupted(err) && err != nil {
				return err
			}
		}
		progress.Start("Tearing down")
		return nil
	})
	progress.Stop()
	if err != nil {
		return err
	}

	if !success {
		return &cli.ExitError{Code: ExitCodeError, Msg: "SQL tests failed"}
	}
	return nil
}

// report prints the step table, records the outcome and writes the JSON
// report. It runs while the stack is still up so that --wait comes last.
func (o *testOptions) report(ctx context.Context, g *globalOptions, sel stack.Selection, out, info io.Writer, renderOpts cli.Options, runName string, start time.Time, success bool, steps []suite.StepResult) error {
	data, tbl := cli.StepsView(steps)
	if err := cli.Render(out, renderOpts, data, tbl); err != nil {
		return err
	}

	if success {
		fmt.Fprintln(info, text.Colors{text.FgGreen, text.Bold}.Sprint("\n✨ All SQL tests passed successfully!"))
	} else {
		fmt.Fprintln(info, text.Colors{text.FgRed, text.Bold}.Sprint("\n❌ SQL tests failed"))
	}

	if o.record {
		keys := results.ResolveKeys(g.resolveStacks(), sel.QueryEngine, sel.Catalog, sel.Storage)
		store := results.NewStore(g.settings.DatabaseDir)
		rec, err := store.RecordRun(context.WithoutCancel(ctx), keys, steps)
		if err != nil {
			return fmt.Errorf("failed to record results: %w", err)
		}
		logging.Info(cmdSubsystem, "Recorded %s as %s in %s", keys, rec.Results.Status, store.Path())
		fmt.Fprintln(info, cli.FormatSuccess(fmt.Sprintf("Recorded %s as %s", keys, rec.Results.Status)))
	}

	if o.reportDir != "" {
		report := suite.NewReport(runName, sel.Storage, sel.Catalog, sel.QueryEngine, start, time.Now(), success, steps)
		path, err := suite.WriteReport(o.reportDir, report)
		if err != nil {
			return err
		}
		fmt.Fprintln(info, cli.FormatSuccess("Report written to "+path))
	}
	return nil
}
