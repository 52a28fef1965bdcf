package cli

import (
	"github.com/spf13/cobra"
)

// OutputFlags holds the output flag values shared by listing commands.
type OutputFlags struct {
	// OutputFormat specifies the desired output format (table, plain, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
}

// RegisterOutputFlags registers --output/-o and --no-headers.
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, plain, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
}

// Options validates the flags and converts them to render options.
func (f *OutputFlags) Options() (Options, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return Options{}, err
	}
	return Options{Format: OutputFormat(f.OutputFormat), NoHeaders: f.NoHeaders}, nil
}

// StackFlags are the component selection flags of start and test.
type StackFlags struct {
	Storage     string
	Catalog     string
	QueryEngine string
}

// RegisterStackFlags registers --storage, --catalog and --query-engine.
// required marks all three as mandatory.
func RegisterStackFlags(cmd *cobra.Command, flags *StackFlags, required bool) {
	cmd.Flags().StringVar(&flags.Storage, "storage", "", "Storage backend to use")
	cmd.Flags().StringVar(&flags.Catalog, "catalog", "", "Catalog service to use (requires --storage)")
	cmd.Flags().StringVar(&flags.QueryEngine, "query-engine", "", "Query engine to use (requires --storage and --catalog)")
	if required {
		for _, name := range []string{"storage", "catalog", "query-engine"} {
			_ = cmd.MarkFlagRequired(name)
		}
	}
}

// Validate checks the flag dependencies: a catalog needs a storage and a
// query engine needs both.
func (f *StackFlags) Validate() error {
	switch {
	case f.Storage == "":
		return NewUsageError("--storage is required")
	case f.QueryEngine != "" && f.Catalog == "":
		return NewUsageError("--query-engine requires --catalog and --storage")
	}
	return nil
}
