package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"icebergtest/internal/cli"
	"icebergtest/internal/config"
	"icebergtest/internal/stack"
	"icebergtest/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error, including a failed test run.
	ExitCodeError = 1
	// ExitCodeUsage indicates invalid flags or an unknown component. No
	// resources were touched.
	ExitCodeUsage = 2
)

// globalOptions are the persistent flags and what PersistentPreRunE loads
// from them.
type globalOptions struct {
	configPath string
	logLevel   string
	dotenvPath string

	settings config.Settings
}

// appVersion is set by main through SetVersion. Commands must read it
// rather than rootCmd, which is still being initialised when they are built.
var appVersion string

// rootCmd represents the base command for the icebergtest application.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:     "icebergtest",
		Version: appVersion,
		Short:   "Test Iceberg storage, catalog and query engine compatibility",
		Long: `icebergtest assembles stacks of an object storage, an Iceberg catalog
and a query engine, runs a SQL suite against them and records which
combinations work.

Capability definitions and recorded results live in the database
directory (default: ./database).`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		// Errors are printed by Execute so that ExitError stays quiet.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Settings file (default: ./"+config.DefaultConfigFileName+" if present)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.dotenvPath, "env-file", ".env", "Secrets file used when doppler is not configured")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSelfUpdateCmd())
	cmd.AddCommand(newListComponentsCmd())
	cmd.AddCommand(newStartCmd(g))
	cmd.AddCommand(newTestCmd(g))
	cmd.AddCommand(newMatrixCmd(g))
	cmd.AddCommand(newResultsCmd(g))
	cmd.AddCommand(newCheckCmd(g))

	return cmd
}

func (g *globalOptions) load(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(g.logLevel)
	if err != nil {
		return cli.NewUsageError("%v", err)
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	settings, err := config.LoadSettings(g.configPath)
	if err != nil {
		return err
	}
	g.settings = settings
	return nil
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return appVersion
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM, in which case the running stack is torn down first.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "icebergtest version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), cli.FormatError(err))
		}
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if cli.IsUsageError(err) || stack.IsConfigurationError(err) {
		return ExitCodeUsage
	}

	return ExitCodeError
}
