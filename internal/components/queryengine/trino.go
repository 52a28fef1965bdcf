package queryengine

import (
	"context"
	"database/sql"
	"fmt"

	"icebergtest/internal/component"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/health"
	"icebergtest/internal/suite"
	"icebergtest/pkg/logging"

	_ "github.com/trinodb/trino-go-client/trino"
	"resty.dev/v3"
)

const (
	trinoSubsystem = "Trino"

	TrinoKey = "trino"

	trinoEnvironment = "docker"
	trinoMaxHeap     = "4G"
)

type trinoTemplate struct {
	containerizer.Common
	Image    string
	HostPort int
}

type trinoNodeTemplate struct {
	Environment string
	NodeID      string
}

type trinoJVMTemplate struct {
	MaxHeap string
}

type trinoInfo struct {
	NodeVersion struct {
		Version string `json:"version"`
	} `json:"nodeVersion"`
	Environment string `json:"environment"`
	Starting    bool   `json:"starting"`
}

// openTrino opens a database/sql handle for a trino DSN.
var openTrino = func(dsn string) (*sql.DB, error) {
	return sql.Open("trino", dsn)
}

// Trino runs a single-node Trino and registers the stack's catalog with
// dynamic catalog management.
type Trino struct {
	*component.Base
	env     *component.Env
	storage component.Storage
	catalog component.Catalog
	project string
	baseURL string
	client  *resty.Client
	db      *sql.DB
	started bool
}

// NewTrino builds the trino query engine. It needs a catalog its dynamic
// catalog SQL can describe.
func NewTrino(env *component.Env, storage component.Storage, catalog component.Catalog) (component.QueryEngine, error) {
	if catalog == nil {
		return nil, component.Unsupported("trino without a catalog")
	}
	if _, err := trinoCatalogSQL(storage, catalog, env.Secrets.AWS()); err != nil {
		return nil, err
	}
	return &Trino{
		Base:    component.NewBase(TrinoKey, component.RoleQueryEngine),
		env:     env,
		storage: storage,
		catalog: catalog,
		project: env.ProjectName(TrinoKey),
		baseURL: fmt.Sprintf("http://localhost:%d", env.Settings.Trino.HostPort),
		client:  resty.New(),
	}, nil
}

func (t *Trino) dsn() string {
	return fmt.Sprintf("http://%s@localhost:%d", t.env.Settings.Trino.User, t.env.Settings.Trino.HostPort)
}

func (t *Trino) files() (map[string]string, error) {
	node, err := containerizer.Render("trino-node.properties.tmpl", trinoNodeTemplate{
		Environment: trinoEnvironment,
		NodeID:      t.env.RunName(),
	})
	if err != nil {
		return nil, err
	}
	cfg, err := containerizer.Render("trino-config.properties.tmpl", struct{}{})
	if err != nil {
		return nil, err
	}
	jvm, err := containerizer.Render("trino-jvm.config.tmpl", trinoJVMTemplate{MaxHeap: trinoMaxHeap})
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"trino/node.properties":   string(node),
		"trino/config.properties": string(cfg),
		"trino/jvm.config":        string(jvm),
	}, nil
}

func (t *Trino) Setup(ctx context.Context) error {
	compose, err := containerizer.Render("trino.yml.tmpl", trinoTemplate{
		Common:   containerizer.Common{Network: t.env.Network()},
		Image:    t.env.Settings.Trino.Image,
		HostPort: t.env.Settings.Trino.HostPort,
	})
	if err != nil {
		return err
	}
	files, err := t.files()
	if err != nil {
		return err
	}

	logging.Info(trinoSubsystem, "Starting Trino (project %s)", t.project)
	if err := t.env.Compose.Up(ctx, containerizer.Project{Name: t.project, Compose: compose, Files: files}); err != nil {
		return err
	}
	t.started = true

	// The container reports healthy before the coordinator finishes starting.
	check := health.HTTPJSON(t.client, t.baseURL+"/v1/info", func(info trinoInfo) error {
		if info.Starting {
			return fmt.Errorf("trino %s is still starting", info.NodeVersion.Version)
		}
		return nil
	})
	if err := health.Wait(ctx, TrinoKey, t.env.HealthPolicy(), check); err != nil {
		return err
	}

	db, err := openTrino(t.dsn())
	if err != nil {
		return fmt.Errorf("failed to open trino connection: %w", err)
	}
	t.db = db

	stmt, err := trinoCatalogSQL(t.storage, t.catalog, t.env.Secrets.AWS())
	if err != nil {
		return err
	}
	if _, err := t.ExecuteQuery(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create catalog %s: %w", TrinoCatalogName, err)
	}
	logging.Info(trinoSubsystem, "Created catalog %s", TrinoCatalogName)
	return nil
}

func (t *Trino) Teardown(ctx context.Context) error {
	if t.db != nil {
		if err := t.db.Close(); err != nil {
			logging.Warn(trinoSubsystem, "Failed to close connection: %v", err)
		}
		t.db = nil
	}
	if !t.started {
		return nil
	}
	t.started = false
	return t.env.Compose.Down(ctx, t.project)
}

// LinkTable does nothing: Trino reads tables straight from the catalog.
func (t *Trino) LinkTable(context.Context, string) error { return nil }

// UnlinkTable does nothing.
func (t *Trino) UnlinkTable(context.Context, string) error { return nil }

func (t *Trino) CreateTable(ctx context.Context, name string) error {
	_, err := t.ExecuteQuery(ctx, suite.CreateTableSQL(name))
	return err
}

func (t *Trino) ExecuteQuery(ctx context.Context, stmt string) ([][]any, error) {
	if t.db == nil {
		return nil, fmt.Errorf("trino is not running")
	}
	logging.Debug(trinoSubsystem, "Executing query: %s", stmt)
	rows, err := queryRows(ctx, t.db, stmt)
	if err != nil {
		return nil, fmt.Errorf("trino query failed: %w", err)
	}
	return rows, nil
}
