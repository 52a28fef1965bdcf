package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"icebergtest/internal/component"
	"icebergtest/internal/component/componenttest"
	"icebergtest/internal/config"
	"icebergtest/internal/registry"

	"github.com/stretchr/testify/require"
)

// executeCommand runs a fresh command tree and captures its output.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// newDatabase copies the capability definitions into a temp dir and returns
// a settings file pointing at it.
func newDatabase(t *testing.T) (configPath, databaseDir string) {
	t.Helper()

	dir := t.TempDir()
	databaseDir = filepath.Join(dir, "database")
	require.NoError(t, os.MkdirAll(databaseDir, 0755))
	for _, name := range []string{
		registry.StorageInterfacesFile,
		registry.StoragesFile,
		registry.CatalogInterfacesFile,
		registry.CatalogsFile,
		registry.QueryEnginesFile,
	} {
		data, err := os.ReadFile(filepath.Join("..", "database", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(databaseDir, name), data, 0644))
	}

	configPath = filepath.Join(dir, "icebergtest.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("databaseDir: "+databaseDir+"\n"), 0644))
	return configPath, databaseDir
}

// fakeRuntime replaces the container runtime, secrets and components with
// in-memory fakes for the duration of the test.
type fakeRuntime struct {
	Network  *componenttest.Network
	Compose  *componenttest.Compose
	Tables   *componenttest.Tables
	Prompter *componenttest.Prompter
	Engine   *componenttest.QueryEngine
	Recorder *componenttest.Recorder
}

func useFakeRuntime(t *testing.T) *fakeRuntime {
	t.Helper()

	f := &fakeRuntime{
		Network:  &componenttest.Network{},
		Compose:  &componenttest.Compose{},
		Tables:   componenttest.NewTables(),
		Prompter: &componenttest.Prompter{},
		Recorder: &componenttest.Recorder{},
	}
	f.Engine = componenttest.NewQueryEngine("memengine", f.Recorder)

	prevRegistry, prevInfra, prevOpen, prevSecrets, prevPrompter := newComponentRegistry, newInfrastructure, openCatalog, resolveSecrets, newPrompter
	t.Cleanup(func() {
		newComponentRegistry, newInfrastructure, openCatalog, resolveSecrets, newPrompter = prevRegistry, prevInfra, prevOpen, prevSecrets, prevPrompter
	})

	newComponentRegistry = func() *component.Registry {
		reg := component.NewRegistry()
		require.NoError(t, reg.RegisterStorage(component.Descriptor{Key: "memstore", Description: "in-memory storage"},
			func(*component.Env) (component.Storage, error) {
				return componenttest.NewStorage("memstore", f.Recorder), nil
			}))
		require.NoError(t, reg.RegisterCatalog(component.Descriptor{Key: "memcatalog", Description: "in-memory catalog"},
			func(*component.Env, component.Storage) (component.Catalog, error) {
				return componenttest.NewCatalog("memcatalog", f.Recorder), nil
			}))
		require.NoError(t, reg.RegisterQueryEngine(component.Descriptor{Key: "memengine", Description: "scripted engine"},
			func(*component.Env, component.Storage, component.Catalog) (component.QueryEngine, error) {
				return f.Engine, nil
			}))
		return reg
	}
	newInfrastructure = func(config.DockerSettings) (*infrastructure, error) {
		return &infrastructure{Compose: f.Compose, Networks: f.Network}, nil
	}
	openCatalog = f.Tables.Open
	resolveSecrets = func(context.Context, config.SecretOptions) (*config.Secrets, error) {
		return config.NewSecrets("test", nil), nil
	}
	newPrompter = func() component.Prompter { return f.Prompter }
	return f
}
