// Package componenttest provides in-memory fakes for testing code built on
// package component: a compose runner, a network provider, a table-format
// catalog, a prompter, and scripted storages, catalogs and query engines.
package componenttest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"icebergtest/internal/component"
	"icebergtest/internal/config"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/tableformat"
	"icebergtest/internal/testcontext"
)

// RunName is the run name of environments built by NewEnv.
const RunName = "0badc0de"

// Recorder collects lifecycle events from several fakes in order.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// Record appends an event.
func (r *Recorder) Record(format string, args ...any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how many times event was recorded.
func (r *Recorder) Count(event string) int {
	n := 0
	for _, e := range r.Events() {
		if e == event {
			n++
		}
	}
	return n
}

// Compose is a fake containerizer.ComposeRunner.
type Compose struct {
	mu      sync.Mutex
	Ups     []containerizer.Project
	Downs   []string
	UpErr   error
	DownErr error
}

func (c *Compose) Up(_ context.Context, project containerizer.Project) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Ups = append(c.Ups, project)
	return c.UpErr
}

func (c *Compose) Down(_ context.Context, projectName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Downs = append(c.Downs, projectName)
	return c.DownErr
}

// Project returns the last project brought up whose name ends in suffix.
func (c *Compose) Project(suffix string) (containerizer.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.Ups) - 1; i >= 0; i-- {
		if strings.HasSuffix(c.Ups[i].Name, suffix) {
			return c.Ups[i], true
		}
	}
	return containerizer.Project{}, false
}

// Network is a fake testcontext.NetworkProvider that always succeeds.
type Network struct {
	mu      sync.Mutex
	Created []string
	Removed []string
}

func (n *Network) NetworkExists(context.Context, string) (bool, error) { return false, nil }

func (n *Network) CreateNetwork(_ context.Context, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Created = append(n.Created, name)
	return nil
}

func (n *Network) RemoveNetwork(_ context.Context, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Removed = append(n.Removed, name)
	return nil
}

// Tables is a fake table-format backend. Open records the properties it was
// given and returns a catalog that records every call.
type Tables struct {
	mu         sync.Mutex
	Opened     []map[string]string
	Namespaces map[string]bool
	Tables     map[string]tableformat.TableSpec
	Calls      []string
	OpenErr    error
	// Fail maps an operation name such as "CreateTable" to an error.
	Fail map[string]error
}

// NewTables creates an empty fake backend.
func NewTables() *Tables {
	return &Tables{Namespaces: map[string]bool{}, Tables: map[string]tableformat.TableSpec{}, Fail: map[string]error{}}
}

// Open satisfies tableformat.Opener.
func (t *Tables) Open(_ context.Context, props map[string]string) (tableformat.Catalog, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Opened = append(t.Opened, props)
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}
	return &tablesCatalog{t: t}, nil
}

// LastProps returns the properties of the most recent Open.
func (t *Tables) LastProps() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Opened) == 0 {
		return nil
	}
	return t.Opened[len(t.Opened)-1]
}

func (t *Tables) call(op, arg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, op+" "+arg)
	return t.Fail[op]
}

type tablesCatalog struct {
	t *Tables
}

func (c *tablesCatalog) CreateNamespace(_ context.Context, namespace string) error {
	if err := c.t.call("CreateNamespace", namespace); err != nil {
		return err
	}
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.Namespaces[namespace] = true
	return nil
}

func (c *tablesCatalog) DropNamespace(_ context.Context, namespace string) error {
	if err := c.t.call("DropNamespace", namespace); err != nil {
		return err
	}
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	delete(c.t.Namespaces, namespace)
	return nil
}

func (c *tablesCatalog) CreateTable(_ context.Context, spec tableformat.TableSpec) error {
	if err := c.t.call("CreateTable", spec.Identifier()); err != nil {
		return err
	}
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.Tables[spec.Identifier()] = spec
	return nil
}

func (c *tablesCatalog) DropTable(_ context.Context, namespace, name string) error {
	if err := c.t.call("DropTable", namespace+"."+name); err != nil {
		return err
	}
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	delete(c.t.Tables, namespace+"."+name)
	return nil
}

// Prompter answers prompts from a script.
type Prompter struct {
	mu        sync.Mutex
	Answers   []string
	Questions []string
}

func (p *Prompter) Prompt(_ context.Context, question string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Questions = append(p.Questions, question)
	if len(p.Answers) == 0 {
		return "", nil
	}
	answer := p.Answers[0]
	p.Answers = p.Answers[1:]
	return answer, nil
}

// Env bundles a component.Env with the fakes behind it.
type Env struct {
	*component.Env
	Compose  *Compose
	Network  *Network
	Tables   *Tables
	Prompter *Prompter
}

// NewEnv builds an environment with default settings, the given secrets,
// fake infrastructure and a fast health policy.
func NewEnv(t testing.TB, secrets map[string]string) *Env {
	t.Helper()

	settings := config.GetDefaultSettings()
	settings.Health.Interval = 1
	settings.Health.Attempts = 3

	network := &Network{}
	compose := &Compose{}
	tables := NewTables()
	prompter := &Prompter{}

	return &Env{
		Env: &component.Env{
			TestContext: testcontext.New(network, testcontext.WithRunName(RunName)),
			Compose:     compose,
			Secrets:     config.NewSecrets("test", secrets),
			Settings:    settings,
			Prompter:    prompter,
			OpenCatalog: tables.Open,
		},
		Compose:  compose,
		Network:  network,
		Tables:   tables,
		Prompter: prompter,
	}
}
