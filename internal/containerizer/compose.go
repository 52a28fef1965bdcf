package containerizer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"icebergtest/pkg/logging"
)

const composeSubsystem = "Compose"

const composeFileName = "compose.yml"

// execCommandContext and lookPath are variables to allow mocking in tests
var (
	execCommandContext = exec.CommandContext
	lookPath           = exec.LookPath
)

// ComposeCLI implements ComposeRunner by shelling out to docker-compose (or
// any CLI with the same flags, like "docker compose" or podman-compose).
type ComposeCLI struct {
	command    []string
	dockerHost string

	// cleanupTimeout bounds the down after a failed up.
	cleanupTimeout time.Duration

	mu       sync.Mutex
	projects map[string]string // project name -> working directory
}

// NewComposeCLI creates a runner for the given compose command. The command
// may contain spaces, e.g. "docker compose".
func NewComposeCLI(command, dockerHost string) (*ComposeCLI, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("compose command cannot be empty")
	}
	if _, err := lookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("%s command not found in PATH: %w", fields[0], err)
	}
	return &ComposeCLI{
		command:        fields,
		dockerHost:     dockerHost,
		cleanupTimeout: 2 * time.Minute,
		projects:       make(map[string]string),
	}, nil
}

// Up writes the project to a fresh directory and runs "up -d -V --wait".
func (c *ComposeCLI) Up(ctx context.Context, project Project) error {
	if project.Name == "" {
		return fmt.Errorf("compose project name cannot be empty")
	}

	c.mu.Lock()
	if _, exists := c.projects[project.Name]; exists {
		c.mu.Unlock()
		return fmt.Errorf("compose project %s is already running", project.Name)
	}
	c.mu.Unlock()

	dir, err := writeProject(project)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.projects[project.Name] = dir
	c.mu.Unlock()

	logging.Info(composeSubsystem, "Starting compose project %s", project.Name)
	if output, err := c.run(ctx, project.Name, dir, "up", "-d", "-V", "--wait"); err != nil {
		upErr := fmt.Errorf("failed to start compose project %s: %w\nOutput: %s", project.Name, err, output)

		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cleanupTimeout)
		defer cancel()
		if downErr := c.Down(cleanupCtx, project.Name); downErr != nil {
			logging.Warn(composeSubsystem, "Cleanup after failed start of %s also failed: %v", project.Name, downErr)
		}
		return upErr
	}

	logging.Info(composeSubsystem, "Compose project %s is healthy", project.Name)
	return nil
}

// Down runs "down -v" and removes the project's working directory.
func (c *ComposeCLI) Down(ctx context.Context, projectName string) error {
	c.mu.Lock()
	dir, ok := c.projects[projectName]
	delete(c.projects, projectName)
	c.mu.Unlock()

	if !ok {
		logging.Debug(composeSubsystem, "Compose project %s is not running", projectName)
		return nil
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn(composeSubsystem, "Failed to remove %s: %v", dir, err)
		}
	}()

	logging.Info(composeSubsystem, "Tearing down compose project %s", projectName)
	if output, err := c.run(ctx, projectName, dir, "down", "-v"); err != nil {
		return fmt.Errorf("failed to stop compose project %s: %w\nOutput: %s", projectName, err, output)
	}
	return nil
}

// Running returns the names of the projects started by this runner.
func (c *ComposeCLI) Running() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.projects))
	for name := range c.projects {
		names = append(names, name)
	}
	return names
}

func (c *ComposeCLI) run(ctx context.Context, projectName, dir string, args ...string) (string, error) {
	full := append([]string{}, c.command[1:]...)
	full = append(full, "-p", projectName, "-f", filepath.Join(dir, composeFileName))
	full = append(full, args...)

	logging.Debug(composeSubsystem, "Running command: %s %s", c.command[0], strings.Join(full, " "))

	cmd := execCommandContext(ctx, c.command[0], full...)
	cmd.Dir = dir
	if c.dockerHost != "" {
		env := cmd.Env
		if env == nil {
			env = os.Environ()
		}
		cmd.Env = append(env, "DOCKER_HOST="+c.dockerHost)
	}
	output, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(output)), err
}

func writeProject(project Project) (string, error) {
	dir, err := os.MkdirTemp("", "icebergtest-"+project.Name+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create compose directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, composeFileName), project.Compose, 0600); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to write compose file: %w", err)
	}

	for rel, content := range project.Files {
		if filepath.IsAbs(rel) || strings.HasPrefix(filepath.Clean(rel), "..") {
			os.RemoveAll(dir)
			return "", fmt.Errorf("project file %s must be relative to the project directory", rel)
		}
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		// mounted into containers that may run as another user
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}

	return dir, nil
}
