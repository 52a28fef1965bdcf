package component

import (
	"context"
	"errors"
	"fmt"

	"icebergtest/internal/config"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/health"
	"icebergtest/internal/tableformat"
	"icebergtest/internal/testcontext"
)

// ErrNoPrompter is returned when a component needs operator input but the
// run is non-interactive.
var ErrNoPrompter = errors.New("operator input required but no prompter is configured")

// Env is everything a component may use besides its upstream components.
// One Env is shared by the components of a single stack.
type Env struct {
	TestContext *testcontext.TestContext
	Compose     containerizer.ComposeRunner
	Secrets     *config.Secrets
	Settings    config.Settings
	Prompter    Prompter
	// OpenCatalog opens a table-format client, normally tableformat.Open.
	OpenCatalog tableformat.Opener
}

// RunName is the unique id of the test run.
func (e *Env) RunName() string {
	return e.TestContext.RunName()
}

// Network is the docker network shared by the stack.
func (e *Env) Network() string {
	return e.TestContext.NetworkName()
}

// ProjectName is the compose project name for a component in this run.
func (e *Env) ProjectName(key string) string {
	return fmt.Sprintf("%s_%s_%s", e.Settings.Docker.ProjectName, e.RunName(), key)
}

// HealthPolicy is the configured readiness policy.
func (e *Env) HealthPolicy() health.Policy {
	return health.PolicyFromSettings(e.Settings.Health)
}

// Common returns the template data shared by compose payloads. The tunnel
// is only included when an ngrok token is available.
func (e *Env) Common(service string, hostPort int) containerizer.Common {
	return containerizer.Common{
		Network: e.Network(),
		Tunnel:  e.Tunnel(service, hostPort),
	}
}

// Tunnel describes an ngrok sidecar publishing hostPort, or nil when tunnels
// are disabled.
func (e *Env) Tunnel(service string, hostPort int) *containerizer.Tunnel {
	token := ""
	if e.Secrets != nil {
		token = e.Secrets.NgrokToken()
	}
	if token == "" {
		return nil
	}
	return &containerizer.Tunnel{
		Service: service + "_ngrok",
		Image:   e.Settings.Tunnel.Image,
		Token:   token,
		Domain:  fmt.Sprintf("icebergtest%s-%s.%s", service, e.RunName(), e.Settings.Tunnel.DomainSuffix),
		Target:  fmt.Sprintf("http://host.docker.internal:%d", hostPort),
	}
}

// Prompt asks the operator a question.
func (e *Env) Prompt(ctx context.Context, question string) (string, error) {
	if e.Prompter == nil {
		return "", ErrNoPrompter
	}
	return e.Prompter.Prompt(ctx, question)
}

// Catalog opens a table-format client with the given property layers merged
// left to right.
func (e *Env) Catalog(ctx context.Context, layers ...map[string]string) (tableformat.Catalog, error) {
	open := e.OpenCatalog
	if open == nil {
		open = tableformat.Open
	}
	return open(ctx, tableformat.MergeProperties(layers...))
}
