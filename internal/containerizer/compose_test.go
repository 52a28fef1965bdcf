package containerizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCommand struct {
	name string
	args []string
}

var (
	recordMu sync.Mutex
	recorded []recordedCommand
	// composeFail makes the fake compose fail for the named subcommand.
	composeFail string
)

func init() {
	// Replace the exec command context with our mock in tests
	execCommandContext = mockExecCommandContext
	lookPath = func(file string) (string, error) {
		if file == "missing-compose" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + file, nil
	}
}

func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "COMPOSE_FAIL=" + composeFail}

	recordMu.Lock()
	recorded = append(recorded, recordedCommand{name: name, args: args})
	recordMu.Unlock()
	return cmd
}

func resetRecorded(t *testing.T) {
	t.Helper()
	recordMu.Lock()
	recorded = nil
	recordMu.Unlock()
	composeFail = ""
	t.Cleanup(func() { composeFail = "" })
}

func commands() []recordedCommand {
	recordMu.Lock()
	defer recordMu.Unlock()
	return append([]recordedCommand(nil), recorded...)
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "No command\n")
		os.Exit(2)
	}

	var sub string
	for _, a := range args {
		if a == "up" || a == "down" {
			sub = a
		}
	}
	if sub == "" {
		fmt.Fprintf(os.Stderr, "unknown compose invocation: %s\n", strings.Join(args, " "))
		os.Exit(2)
	}
	if os.Getenv("COMPOSE_FAIL") == sub {
		fmt.Fprintf(os.Stderr, "container minio is unhealthy\n")
		os.Exit(1)
	}
	os.Exit(0)
}

func newTestRunner(t *testing.T, command string) *ComposeCLI {
	t.Helper()
	runner, err := NewComposeCLI(command, "")
	require.NoError(t, err)
	return runner
}

func TestNewComposeCLI(t *testing.T) {
	_, err := NewComposeCLI("", "")
	assert.Error(t, err)

	_, err = NewComposeCLI("missing-compose", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in PATH")

	runner, err := NewComposeCLI("docker compose", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docker", "compose"}, runner.command)
}

func TestComposeCLI_UpAndDown(t *testing.T) {
	resetRecorded(t)
	runner := newTestRunner(t, "docker-compose")
	ctx := context.Background()

	err := runner.Up(ctx, Project{
		Name:    "iceberg_test_trino_ab12",
		Compose: []byte("services: {}\n"),
		Files:   map[string]string{"trino/node.properties": "node.id=local\n"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"iceberg_test_trino_ab12"}, runner.Running())

	dir := runner.projects["iceberg_test_trino_ab12"]
	content, err := os.ReadFile(filepath.Join(dir, "trino", "node.properties"))
	require.NoError(t, err)
	assert.Equal(t, "node.id=local\n", string(content))

	require.NoError(t, runner.Down(ctx, "iceberg_test_trino_ab12"))
	assert.Empty(t, runner.Running())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "project directory should be removed")

	cmds := commands()
	require.Len(t, cmds, 2)
	composeFile := filepath.Join(dir, composeFileName)
	assert.Equal(t, "docker-compose", cmds[0].name)
	assert.Equal(t, []string{"-p", "iceberg_test_trino_ab12", "-f", composeFile, "up", "-d", "-V", "--wait"}, cmds[0].args)
	assert.Equal(t, []string{"-p", "iceberg_test_trino_ab12", "-f", composeFile, "down", "-v"}, cmds[1].args)
}

func TestComposeCLI_SubcommandStyle(t *testing.T) {
	resetRecorded(t)
	runner := newTestRunner(t, "docker compose")

	require.NoError(t, runner.Up(context.Background(), Project{Name: "p1", Compose: []byte("services: {}\n")}))
	require.NoError(t, runner.Down(context.Background(), "p1"))

	cmds := commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, "docker", cmds[0].name)
	assert.Equal(t, "compose", cmds[0].args[0])
}

func TestComposeCLI_FailedUpCleansUp(t *testing.T) {
	resetRecorded(t)
	composeFail = "up"
	runner := newTestRunner(t, "docker-compose")

	err := runner.Up(context.Background(), Project{Name: "p1", Compose: []byte("services: {}\n")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container minio is unhealthy")
	assert.Empty(t, runner.Running())

	cmds := commands()
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[1].args, "down")
}

func TestComposeCLI_DownFailureStillForgetsProject(t *testing.T) {
	resetRecorded(t)
	runner := newTestRunner(t, "docker-compose")
	require.NoError(t, runner.Up(context.Background(), Project{Name: "p1", Compose: []byte("services: {}\n")}))
	dir := runner.projects["p1"]

	composeFail = "down"
	err := runner.Down(context.Background(), "p1")
	require.Error(t, err)
	assert.Empty(t, runner.Running())
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	// a second down has nothing to do
	assert.NoError(t, runner.Down(context.Background(), "p1"))
	assert.Len(t, commands(), 2)
}

func TestComposeCLI_RejectsBadProjects(t *testing.T) {
	resetRecorded(t)
	runner := newTestRunner(t, "docker-compose")
	ctx := context.Background()

	assert.Error(t, runner.Up(ctx, Project{Compose: []byte("services: {}\n")}))
	assert.Error(t, runner.Up(ctx, Project{Name: "p", Compose: []byte("x"), Files: map[string]string{"../escape": "x"}}))
	assert.Error(t, runner.Up(ctx, Project{Name: "p", Compose: []byte("x"), Files: map[string]string{"/etc/passwd": "x"}}))

	require.NoError(t, runner.Up(ctx, Project{Name: "p", Compose: []byte("services: {}\n")}))
	assert.Error(t, runner.Up(ctx, Project{Name: "p", Compose: []byte("services: {}\n")}), "duplicate project")
	require.NoError(t, runner.Down(ctx, "p"))
}

func TestDetectRuntime(t *testing.T) {
	assert.Equal(t, RuntimeTypeDocker, DetectRuntime("docker-compose"))
	assert.Equal(t, RuntimeTypeDocker, DetectRuntime("docker compose"))
	assert.Equal(t, RuntimeTypePodman, DetectRuntime("podman-compose"))
}
