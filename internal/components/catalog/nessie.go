package catalog

import (
	"context"
	"fmt"
	"strconv"

	"icebergtest/internal/component"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/health"
	"icebergtest/pkg/logging"

	"resty.dev/v3"
)

const (
	nessieSubsystem = "Nessie"

	NessieKey = "nessie"

	nessieImage            = "ghcr.io/projectnessie/nessie:0.102.5"
	nessiePostgresImage    = "postgres:15.10"
	nessiePostgresPassword = "password123"
	NessieAPIPort          = 19120
	NessieManagementPort   = 19121
	nessieWarehouse        = "warehouse"
)

type nessieTemplate struct {
	containerizer.Common
	Image            string
	PostgresImage    string
	PostgresPassword string
	APIPort          int
	ManagementPort   int
	WarehouseEnv     map[string]string
}

type nessieHealth struct {
	Status string `json:"status"`
	Checks []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"checks"`
}

// Nessie runs a Nessie server backed by postgres and uses its Iceberg REST
// endpoint.
type Nessie struct {
	*component.Base
	env           *component.Env
	storage       component.Storage
	common        containerizer.Common
	project       string
	warehouseEnv  map[string]string
	managementURL string
	client        *resty.Client
	started       bool
}

// NewNessie builds the nessie catalog. The storage must speak S3 or ADLS.
func NewNessie(env *component.Env, storage component.Storage) (component.Catalog, error) {
	warehouseEnv, err := nessieWarehouseEnv(storage)
	if err != nil {
		return nil, err
	}
	return &Nessie{
		Base:          component.NewBase(NessieKey, component.RoleCatalog),
		env:           env,
		storage:       storage,
		common:        env.Common(NessieKey, NessieAPIPort),
		project:       env.ProjectName(NessieKey),
		warehouseEnv:  warehouseEnv,
		managementURL: "http://localhost:" + strconv.Itoa(NessieManagementPort),
		client:        newRESTClient(),
	}, nil
}

func nessieWarehouseEnv(storage component.Storage) (map[string]string, error) {
	if s3, ok := storage.(component.S3Access); ok {
		cfg := s3.S3()
		env := map[string]string{
			"NESSIE_CATALOG_WAREHOUSES_WAREHOUSE_LOCATION":                storage.BucketURL(),
			"NESSIE_CATALOG_SERVICE_S3_DEFAULT_OPTIONS_PATH_STYLE_ACCESS": "true",
			"NESSIE_CATALOG_SERVICE_S3_DEFAULT_OPTIONS_REGION":            cfg.Region,
			"NESSIE_CATALOG_SERVICE_S3_DEFAULT_OPTIONS_AUTH_TYPE":         "APPLICATION_GLOBAL",

			"AWS_ACCESS_KEY_ID":     cfg.AccessKeyID,
			"AWS_SECRET_ACCESS_KEY": cfg.SecretAccessKey,
		}
		if cfg.NetworkEndpoint != "" {
			env["NESSIE_CATALOG_SERVICE_S3_DEFAULT_OPTIONS_ENDPOINT"] = cfg.NetworkEndpoint
		}
		return env, nil
	}
	if adls, ok := storage.(component.ADLSAccess); ok {
		cfg := adls.ADLS()
		return map[string]string{
			"NESSIE_CATALOG_WAREHOUSES_WAREHOUSE_LOCATION":          cfg.ABFSURL(),
			"NESSIE_CATALOG_SERVICE_ADLS_DEFAULT_OPTIONS_AUTH_TYPE": "APPLICATION_DEFAULT",
			"NESSIE_CATALOG_SERVICE_ADLS_DEFAULT_OPTIONS_ENDPOINT":  cfg.DFSEndpoint(),

			"AZURE_TENANT_ID":     cfg.TenantID,
			"AZURE_CLIENT_ID":     cfg.ClientID,
			"AZURE_CLIENT_SECRET": cfg.ClientSecret,
		}, nil
	}
	return nil, component.Unsupported("nessie with storage %s", storage.Name())
}

func (n *Nessie) CatalogName() string {
	return Namespace
}

func (n *Nessie) hostURI() string {
	if n.common.Tunnel != nil {
		return n.common.Tunnel.URL() + "/iceberg"
	}
	return fmt.Sprintf("http://localhost:%d/iceberg", NessieAPIPort)
}

func (n *Nessie) CatalogProperties() map[string]string {
	return map[string]string{
		"uri":       n.hostURI(),
		"warehouse": nessieWarehouse,
	}
}

func (n *Nessie) REST() component.RESTConfig {
	cfg := component.RESTConfig{
		URI:       fmt.Sprintf("http://%s:%d/iceberg", NessieKey, NessieAPIPort),
		Warehouse: nessieWarehouse,
	}
	if n.common.Tunnel != nil {
		cfg.URI = n.common.Tunnel.URL() + "/iceberg"
		cfg.Public = true
	}
	return cfg
}

func (n *Nessie) Setup(ctx context.Context) error {
	compose, err := containerizer.Render("nessie.yml.tmpl", nessieTemplate{
		Common:           n.common,
		Image:            nessieImage,
		PostgresImage:    nessiePostgresImage,
		PostgresPassword: nessiePostgresPassword,
		APIPort:          NessieAPIPort,
		ManagementPort:   NessieManagementPort,
		WarehouseEnv:     n.warehouseEnv,
	})
	if err != nil {
		return err
	}

	logging.Info(nessieSubsystem, "Starting Nessie (project %s)", n.project)
	if err := n.env.Compose.Up(ctx, containerizer.Project{Name: n.project, Compose: compose}); err != nil {
		return err
	}
	n.started = true

	// Quarkus reports the JDBC store and the warehouse in its deep health.
	check := health.HTTPJSON(n.client, n.managementURL+"/q/health", func(h nessieHealth) error {
		if h.Status != "UP" {
			return fmt.Errorf("nessie health is %s: %+v", h.Status, h.Checks)
		}
		return nil
	})
	if err := health.Wait(ctx, NessieKey, n.env.HealthPolicy(), check); err != nil {
		return err
	}

	return createNamespace(ctx, n.env, n.storage, n.CatalogProperties())
}

// Teardown stops the containers. The namespace lives in the postgres volume
// and goes with it.
func (n *Nessie) Teardown(ctx context.Context) error {
	if !n.started {
		return nil
	}
	n.started = false
	return n.env.Compose.Down(ctx, n.project)
}
