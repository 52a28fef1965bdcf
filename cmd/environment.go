package cmd

import (
	"context"
	"fmt"
	"os"

	"icebergtest/internal/cli"
	"icebergtest/internal/component"
	"icebergtest/internal/components/builtin"
	"icebergtest/internal/config"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/registry"
	"icebergtest/internal/resolver"
	"icebergtest/internal/stack"
	"icebergtest/internal/tableformat"
	"icebergtest/internal/testcontext"
	"icebergtest/pkg/logging"
)

const cmdSubsystem = "CLI"

// infrastructure is the container runtime a stack runs on.
type infrastructure struct {
	Compose  containerizer.ComposeRunner
	Networks testcontext.NetworkProvider
	Close    func() error
}

// Swapped out by tests.
var (
	newComponentRegistry                    = builtin.NewRegistry
	newInfrastructure                       = dockerInfrastructure
	openCatalog          tableformat.Opener = tableformat.Open
	resolveSecrets                          = config.ResolveSecrets
	newPrompter          func() component.Prompter
)

func dockerInfrastructure(settings config.DockerSettings) (*infrastructure, error) {
	compose, networks, err := containerizer.NewFromSettings(settings)
	if err != nil {
		return nil, err
	}
	return &infrastructure{Compose: compose, Networks: networks, Close: networks.Close}, nil
}

func prompter() component.Prompter {
	if newPrompter != nil {
		return newPrompter()
	}
	return &cli.Prompter{}
}

// checkSelection rejects unknown component keys before anything is started.
func checkSelection(reg *component.Registry, sel stack.Selection) error {
	if err := sel.Validate(); err != nil {
		return cli.NewUsageError("%v", err)
	}
	if err := reg.Check(sel.Storage, sel.Catalog, sel.QueryEngine); err != nil {
		return &cli.UsageError{Err: err}
	}
	return nil
}

// newStackRunner resolves secrets and connects to the container runtime.
// The returned close function releases the runtime connection.
func (g *globalOptions) newStackRunner(ctx context.Context, reg *component.Registry, onStateChange component.StateChangeCallback) (*stack.Runner, func(), error) {
	secrets, err := resolveSecrets(ctx, config.SecretOptions{
		DotenvPath: g.dotenvPath,
		Environ:    os.Environ(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	infra, err := newInfrastructure(g.settings.Docker)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to the container runtime: %w", err)
	}

	runner := &stack.Runner{
		Registry:      reg,
		Networks:      infra.Networks,
		Compose:       infra.Compose,
		Secrets:       secrets,
		Settings:      g.settings,
		Prompter:      prompter(),
		OpenCatalog:   openCatalog,
		OnStateChange: onStateChange,
	}
	closeFn := func() {
		if infra.Close == nil {
			return
		}
		if err := infra.Close(); err != nil {
			logging.Warn(cmdSubsystem, "Failed to close container runtime client: %v", err)
		}
	}
	return runner, closeFn, nil
}

// resolveStacks loads the capability database and enumerates compatible
// stacks. Problems in the database are logged by the loader and do not
// stop the command.
func (g *globalOptions) resolveStacks() []resolver.Stack {
	reg, _ := registry.Load(g.settings.DatabaseDir)
	return resolver.Resolve(reg)
}
