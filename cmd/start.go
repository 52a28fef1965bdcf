package cmd

import (
	"context"
	"errors"
	"fmt"

	"icebergtest/internal/cli"
	"icebergtest/internal/stack"

	"github.com/spf13/cobra"
)

const waitPrompt = "Stack ready for manual testing (--wait), press enter to tear it down"

type startOptions struct {
	stack      cli.StackFlags
	wait       bool
	breakShell bool
}

func newStartCmd(g *globalOptions) *cobra.Command {
	opts := &startOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start one or more components without running tests",
		Long: `Starts a storage, optionally a catalog on top of it and optionally a query
engine on top of both, then tears everything down again.

Use --wait to keep the stack up until enter is pressed, or --break to open
a SQL shell against the query engine before tearing down.`,
		Example: `  icebergtest start --storage minio
  icebergtest start --storage minio --catalog nessie --wait
  icebergtest start --storage minio --catalog nessie --query-engine trino --break`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, g)
		},
	}

	cli.RegisterStackFlags(cmd, &opts.stack, false)
	boolToggle(cmd, &opts.wait, "wait", "Keep the stack up until enter is pressed")
	boolToggle(cmd, &opts.breakShell, "break", "Open a SQL shell against the query engine before tearing down")
	return cmd
}

func (o *startOptions) run(cmd *cobra.Command, g *globalOptions) error {
	if err := o.stack.Validate(); err != nil {
		return err
	}
	sel := stack.Selection{Storage: o.stack.Storage, Catalog: o.stack.Catalog, QueryEngine: o.stack.QueryEngine}
	if o.breakShell && !o.wait && sel.QueryEngine == "" {
		return cli.NewUsageError("--break opens a SQL shell and requires --query-engine")
	}

	reg := newComponentRegistry()
	if err := checkSelection(reg, sel); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Component boot test...")

	progress := cli.NewProgress(cmd.ErrOrStderr(), !cli.IsInteractive())
	runner, closeRuntime, err := g.newStackRunner(ctx, reg, progress.OnStateChange)
	if err != nil {
		return err
	}
	defer closeRuntime()

	progress.Start("Assembling " + sel.String())
	err = runner.Run(ctx, sel, func(ctx context.Context, running *stack.Running) error {
		progress.Stop()
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Stack is up on network %s", running.Env.Network())))

		switch {
		case o.wait:
			_, err := running.Env.Prompt(ctx, waitPrompt)
			if interrupted(err) {
				err = nil
			}
			return err
		case o.breakShell:
			shell := &cli.Shell{Engine: running.QueryEngine, Out: out}
			if err := shell.Run(ctx); err != nil && !interrupted(err) {
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

	fmt.Fprintln(out, cli.FormatSuccess("Stack torn down"))
	return nil
}

// interrupted reports whether err only says the operator stopped waiting.
func interrupted(err error) bool {
	return errors.Is(err, cli.ErrInterrupted) || errors.Is(err, context.Canceled)
}
