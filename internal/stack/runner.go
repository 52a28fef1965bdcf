package stack

import (
	"context"

	"icebergtest/internal/component"
	"icebergtest/internal/config"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/tableformat"
	"icebergtest/internal/testcontext"
)

// Runner assembles stacks inside their own Test Context. One Runner may run
// several stacks concurrently; each Run gets a fresh run name and network.
type Runner struct {
	Registry *component.Registry
	Networks testcontext.NetworkProvider
	Compose  containerizer.ComposeRunner
	Secrets  *config.Secrets
	Settings config.Settings
	Prompter component.Prompter
	// OpenCatalog defaults to tableformat.Open.
	OpenCatalog   tableformat.Opener
	OnStateChange component.StateChangeCallback
	// RunName overrides the generated run name.
	RunName string
}

func (r *Runner) newEnv() *component.Env {
	opts := []testcontext.Option{testcontext.WithNetworkPrefix(r.Settings.Docker.NetworkPrefix)}
	if r.RunName != "" {
		opts = append(opts, testcontext.WithRunName(r.RunName))
	}
	return &component.Env{
		TestContext: testcontext.New(r.Networks, opts...),
		Compose:     r.Compose,
		Secrets:     r.Secrets,
		Settings:    r.Settings,
		Prompter:    r.Prompter,
		OpenCatalog: r.OpenCatalog,
	}
}

// Run builds the selected components, creates the run's network, assembles
// the stack and calls fn. Components are released before the network, and
// the network is removed on every exit path.
func (r *Runner) Run(ctx context.Context, sel Selection, fn func(ctx context.Context, running *Running) error) error {
	env := r.newEnv()
	asm := New(r.Registry, env, WithStateChangeCallback(r.OnStateChange))

	// Build before the network exists so configuration errors touch nothing.
	running, err := asm.Build(sel)
	if err != nil {
		return err
	}

	return env.TestContext.Scope(ctx, r.Settings.TeardownTimeout, func(ctx context.Context) error {
		return asm.RunBuilt(ctx, running, fn)
	})
}
