package cmd

import (
	"icebergtest/internal/cli"

	"github.com/spf13/cobra"
)

func newListComponentsCmd() *cobra.Command {
	var output cli.OutputFlags

	cmd := &cobra.Command{
		Use:   "list-components",
		Short: "List the storage, catalog and query engine implementations",
		Long: `Lists every storage, catalog and query engine implementation that can be
selected with --storage, --catalog and --query-engine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := output.Options()
			if err != nil {
				return err
			}
			data, tbl := cli.ComponentsView(newComponentRegistry())
			return cli.Render(cmd.OutOrStdout(), opts, data, tbl)
		},
	}
	cli.RegisterOutputFlags(cmd, &output)
	return cmd
}
