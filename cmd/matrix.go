package cmd

import (
	"fmt"
	"sync/atomic"

	"icebergtest/internal/cli"
	"icebergtest/internal/matrix"
	"icebergtest/internal/results"
	"icebergtest/pkg/logging"

	"github.com/spf13/cobra"
)

func newMatrixCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Work with every compatible stack at once",
		Long: `The matrix commands operate on every stack the capability database
declares compatible: list them, record placeholders for the ones that
were never tested, or run the suite against all of them.`,
	}
	cmd.AddCommand(newMatrixListCmd(g))
	cmd.AddCommand(newMatrixRecordCompatibleCmd(g))
	cmd.AddCommand(newMatrixRunCmd(g))
	return cmd
}

func newMatrixListCmd(g *globalOptions) *cobra.Command {
	var output cli.OutputFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every compatible stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := output.Options()
			if err != nil {
				return err
			}
			data, tbl := cli.StacksView(g.resolveStacks())
			return cli.Render(cmd.OutOrStdout(), opts, data, tbl)
		},
	}
	cli.RegisterOutputFlags(cmd, &output)
	return cmd
}

func newMatrixRecordCompatibleCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "record-compatible",
		Short: "Record untested compatible stacks as \"compatible\"",
		Long: `Adds a "compatible" placeholder to results.yml for every resolved stack
with a catalog that has no recorded result yet. Existing results are
left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := results.NewStore(g.settings.DatabaseDir)
			added, err := store.AddCompatible(cmd.Context(), g.resolveStacks())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, k := range added {
				fmt.Fprintf(out, "  + %s\n", k)
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added %d compatible stacks to %s", len(added), store.Path())))
			return nil
		},
	}
}

type matrixRunOptions struct {
	filter   matrix.Filter
	parallel int
	record   bool
	failFast bool
	dryRun   bool
	output   cli.OutputFlags
}

func newMatrixRunCmd(g *globalOptions) *cobra.Command {
	opts := &matrixRunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the SQL suite against every compatible stack",
		Long: `Runs the SQL suite against every resolved stack whose components are all
implemented. Each stack gets its own run name and network, so stacks can
run in parallel; stacks that claim the same host ports or services are
serialised.`,
		Example: `  icebergtest matrix run --dry-run
  icebergtest matrix run --parallel 4 --filter-query-engine trino --record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, g)
		},
	}

	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 1, "Number of stacks to run at the same time")
	cmd.Flags().StringSliceVar(&opts.filter.QueryEngines, "filter-query-engine", nil, "Only run stacks with these query engines")
	cmd.Flags().StringSliceVar(&opts.filter.Catalogs, "filter-catalog", nil, "Only run stacks with these catalogs")
	cmd.Flags().StringSliceVar(&opts.filter.Storages, "filter-storage", nil, "Only run stacks with these storages")
	cmd.Flags().BoolVar(&opts.filter.SkipCatalogFree, "skip-catalog-free", false, "Skip stacks without a catalog")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Stop starting new stacks after the first failure")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the planned stacks without running them")
	boolToggle(cmd, &opts.record, "record", "Record every outcome in results.yml")
	cli.RegisterOutputFlags(cmd, &opts.output)
	return cmd
}

func (o *matrixRunOptions) run(cmd *cobra.Command, g *globalOptions) error {
	renderOpts, err := o.output.Options()
	if err != nil {
		return err
	}
	if o.parallel < 1 {
		return cli.NewUsageError("--parallel must be at least 1")
	}

	reg := newComponentRegistry()
	jobs, skipped := matrix.Plan(reg, g.resolveStacks(), o.filter)
	for _, s := range skipped {
		logging.Warn(cmdSubsystem, "Skipping %s: %s", s.Keys, s.Reason)
	}

	out := cmd.OutOrStdout()
	if o.dryRun {
		data, tbl := cli.PlanView(jobs, skipped)
		return cli.Render(out, renderOpts, data, tbl)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("No stacks to run"))
		return nil
	}

	ctx := cmd.Context()
	progress := cli.NewProgress(cmd.ErrOrStderr(), !cli.IsInteractive())
	// Component state changes of parallel stacks would interleave; only
	// finished jobs are narrated.
	stacks, closeRuntime, err := g.newStackRunner(ctx, reg, nil)
	if err != nil {
		return err
	}
	defer closeRuntime()

	var done atomic.Int32
	runner := &matrix.Runner{
		Stacks:   stacks,
		Parallel: o.parallel,
		FailFast: o.failFast,
		OnResult: func(r matrix.Result) {
			progress.Update(fmt.Sprintf("%d/%d stacks done, last: %s %s", done.Add(1), len(jobs), r.Job.Keys, r.Status))
		},
	}
	if o.record {
		runner.Recorder = results.NewStore(g.settings.DatabaseDir)
	}

	progress.Start(fmt.Sprintf("Running %d stacks...", len(jobs)))
	summary, runErr := runner.Run(ctx, jobs)
	progress.Stop()

	data, tbl := cli.MatrixView(summary)
	if err := cli.Render(out, renderOpts, data, tbl); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !summary.Success() {
		return &cli.ExitError{Code: ExitCodeError, Msg: "some stacks failed"}
	}
	return nil
}
