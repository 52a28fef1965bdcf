package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"icebergtest/internal/cli"
	"icebergtest/internal/component"
	"icebergtest/internal/stack"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	original := GetVersion()
	defer SetVersion(original)

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", rootCmd.Version)
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "icebergtest", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)

	for _, name := range []string{"config", "log-level", "env-file"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"version", "self-update", "list-components", "start", "test", "matrix", "results", "check"} {
		assert.True(t, found[name], "expected subcommand %s", name)
	}

	matrixCmd, _, err := rootCmd.Find([]string{"matrix"})
	require.NoError(t, err)
	var subs []string
	for _, c := range matrixCmd.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "record-compatible", "run"}, subs)
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{Use: "test", Version: "1.0.0"}
	testCmd.SetVersionTemplate(`{{printf "icebergtest version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())
	assert.Equal(t, "icebergtest version 1.0.0\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitCodeSuccess},
		{"plain error", errors.New("boom"), ExitCodeError},
		{"usage error", cli.NewUsageError("--storage is required"), ExitCodeUsage},
		{"wrapped usage error", fmt.Errorf("start: %w", cli.NewUsageError("bad")), ExitCodeUsage},
		{"invalid selection", fmt.Errorf("%w: a storage is required", stack.ErrInvalidSelection), ExitCodeUsage},
		{"unknown component", &component.UnknownComponentError{Role: component.RoleStorage, Key: "nope"}, ExitCodeUsage},
		{"exit error", &cli.ExitError{Code: 1, Msg: "SQL tests failed"}, 1},
		{"custom exit code", &cli.ExitError{Code: 7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := executeCommand(t, "--log-level", "chatty", "list-components")
	require.Error(t, err)
	assert.True(t, cli.IsUsageError(err))
	assert.Contains(t, err.Error(), `unknown log level "chatty"`)
}

func TestMissingExplicitConfig(t *testing.T) {
	_, _, err := executeCommand(t, "--config", "does-not-exist.yaml", "list-components")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.yaml")
}

func TestBoolToggle(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{nil, false},
		{[]string{"--wait"}, true},
		{[]string{"--no-wait"}, false},
		{[]string{"--wait", "--no-wait"}, false},
		{[]string{"--no-wait", "--wait"}, true},
		{[]string{"--no-wait=false"}, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			var wait bool
			c := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
			boolToggle(c, &wait, "wait", "wait for it")
			c.SetArgs(tt.args)
			require.NoError(t, c.Execute())
			assert.Equal(t, tt.want, wait)
		})
	}
}
