package cmd

import (
	"slices"
	"strings"

	"icebergtest/internal/cli"
	"icebergtest/internal/results"

	"github.com/spf13/cobra"
)

func newResultsCmd(g *globalOptions) *cobra.Command {
	var (
		output   cli.OutputFlags
		statuses []string
	)

	valid := make([]string, len(results.Statuses))
	for i, s := range results.Statuses {
		valid[i] = string(s)
	}

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the recorded compatibility results",
		Long: `Prints the records of results.yml in the database directory, newest
live runs first.`,
		Example: `  icebergtest results
  icebergtest results --status success,partial -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := output.Options()
			if err != nil {
				return err
			}

			filter := make([]results.Status, 0, len(statuses))
			for _, s := range statuses {
				if !slices.Contains(valid, s) {
					return cli.NewUsageError("unknown status %q (valid: %s)", s, strings.Join(valid, ", "))
				}
				filter = append(filter, results.Status(s))
			}

			doc, err := results.NewStore(g.settings.DatabaseDir).Load()
			if err != nil {
				return err
			}
			data, tbl := cli.ResultsView(doc.Filter(filter...))
			return cli.Render(cmd.OutOrStdout(), opts, data, tbl)
		},
	}

	cli.RegisterOutputFlags(cmd, &output)
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show results with these statuses ("+strings.Join(valid, ", ")+")")
	_ = cmd.RegisterFlagCompletionFunc("status", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return valid, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
