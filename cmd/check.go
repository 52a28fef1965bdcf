package cmd

import (
	"fmt"

	"icebergtest/internal/cli"
	"icebergtest/internal/registry"
	"icebergtest/internal/resolver"

	"github.com/spf13/cobra"
)

func newCheckCmd(g *globalOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the capability database",
		Long: `Loads the five capability collections from the database directory and
reports malformed files, invalid entries and references to unknown
interfaces. Exits with 1 when any problem was found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			reg, errs := registry.Load(g.settings.DatabaseDir)

			fmt.Fprintln(out, cli.FormatHeadline("Capability database %s", g.settings.DatabaseDir))
			fmt.Fprintf(out, "  storage interfaces: %d\n", len(reg.StorageInterfaces))
			fmt.Fprintf(out, "  storages:           %d\n", len(reg.Storages))
			fmt.Fprintf(out, "  catalog interfaces: %d\n", len(reg.CatalogInterfaces))
			fmt.Fprintf(out, "  catalogs:           %d\n", len(reg.Catalogs))
			fmt.Fprintf(out, "  query engines:      %d\n", len(reg.QueryEngines))
			fmt.Fprintf(out, "  compatible stacks:  %d\n\n", len(resolver.Resolve(reg)))

			if !errs.HasErrors() {
				fmt.Fprintln(out, cli.FormatSuccess("No problems found"))
				return nil
			}

			if verbose {
				fmt.Fprintln(out, errs.GetDetailedReport())
			} else {
				fmt.Fprintln(out, errs.GetSummary())
			}
			return &cli.ExitError{Code: ExitCodeError, Msg: fmt.Sprintf("%d problems in the capability database", errs.Count())}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details and suggestions for every problem")
	return cmd
}
