package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"icebergtest/internal/component"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/health"
	"icebergtest/pkg/logging"

	"resty.dev/v3"
)

const (
	lakekeeperSubsystem = "Lakekeeper"

	LakekeeperKey = "lakekeeper"

	lakekeeperImage         = "quay.io/lakekeeper/catalog:latest-main"
	lakekeeperPostgresImage = "bitnami/postgresql:16.3.0"
	lakekeeperEncryptionKey = "This-is-NOT-Secure!"
	LakekeeperAPIPort       = 8181
	lakekeeperService       = "server"
	lakekeeperWarehouse     = "demo"
	lakekeeperProjectID     = "00000000-0000-0000-0000-000000000000"
	lakekeeperKeyPrefix     = "initial-warehouse"
)

type lakekeeperTemplate struct {
	containerizer.Common
	Image         string
	PostgresImage string
	EncryptionKey string
	BaseURI       string
	APIPort       int
}

type lakekeeperStorageProfile struct {
	Type            string `json:"type"`
	Bucket          string `json:"bucket"`
	KeyPrefix       string `json:"key-prefix"`
	Endpoint        string `json:"endpoint,omitempty"`
	Region          string `json:"region"`
	PathStyleAccess bool   `json:"path-style-access"`
	Flavor          string `json:"flavor"`
	STSEnabled      bool   `json:"sts-enabled"`
}

type lakekeeperStorageCredential struct {
	Type               string `json:"type"`
	CredentialType     string `json:"credential-type"`
	AWSAccessKeyID     string `json:"aws-access-key-id"`
	AWSSecretAccessKey string `json:"aws-secret-access-key"`
}

type lakekeeperWarehouseRequest struct {
	WarehouseName     string                      `json:"warehouse-name"`
	ProjectID         string                      `json:"project-id"`
	StorageProfile    lakekeeperStorageProfile    `json:"storage-profile"`
	StorageCredential lakekeeperStorageCredential `json:"storage-credential"`
}

// Lakekeeper runs the Lakekeeper REST catalog, bootstraps it and creates a
// warehouse over the stack's bucket.
type Lakekeeper struct {
	*component.Base
	env     *component.Env
	storage component.Storage
	s3      component.S3Config
	common  containerizer.Common
	project string
	baseURL string
	client  *resty.Client
	started bool
}

// NewLakekeeper builds the lakekeeper catalog. Only S3 storages are
// supported.
func NewLakekeeper(env *component.Env, storage component.Storage) (component.Catalog, error) {
	s3, ok := storage.(component.S3Access)
	if !ok {
		return nil, component.Unsupported("lakekeeper with storage %s", storage.Name())
	}
	return &Lakekeeper{
		Base:    component.NewBase(LakekeeperKey, component.RoleCatalog),
		env:     env,
		storage: storage,
		s3:      s3.S3(),
		common:  env.Common(LakekeeperKey, LakekeeperAPIPort),
		project: env.ProjectName(LakekeeperKey),
		baseURL: "http://localhost:" + strconv.Itoa(LakekeeperAPIPort),
		client:  newRESTClient(),
	}, nil
}

func (l *Lakekeeper) CatalogName() string {
	return Namespace
}

func (l *Lakekeeper) CatalogProperties() map[string]string {
	return map[string]string{
		"uri":       l.baseURL + "/catalog",
		"warehouse": lakekeeperWarehouse,
	}
}

func (l *Lakekeeper) networkBase() string {
	if l.common.Tunnel != nil {
		return l.common.Tunnel.URL()
	}
	return fmt.Sprintf("http://%s:%d", lakekeeperService, LakekeeperAPIPort)
}

func (l *Lakekeeper) REST() component.RESTConfig {
	return component.RESTConfig{
		URI:       l.networkBase() + "/catalog",
		Warehouse: lakekeeperWarehouse,
		Public:    l.common.Tunnel != nil,
	}
}

func (l *Lakekeeper) Setup(ctx context.Context) error {
	compose, err := containerizer.Render("lakekeeper.yml.tmpl", lakekeeperTemplate{
		Common:        l.common,
		Image:         lakekeeperImage,
		PostgresImage: lakekeeperPostgresImage,
		EncryptionKey: lakekeeperEncryptionKey,
		BaseURI:       l.networkBase(),
		APIPort:       LakekeeperAPIPort,
	})
	if err != nil {
		return err
	}

	logging.Info(lakekeeperSubsystem, "Starting Lakekeeper (project %s)", l.project)
	if err := l.env.Compose.Up(ctx, containerizer.Project{Name: l.project, Compose: compose}); err != nil {
		return err
	}
	l.started = true

	if err := health.Wait(ctx, LakekeeperKey, l.env.HealthPolicy(), health.HTTPStatus(l.client, l.baseURL+"/health")); err != nil {
		return err
	}
	if err := l.bootstrap(ctx); err != nil {
		return err
	}
	if err := l.createWarehouse(ctx); err != nil {
		return err
	}
	return createNamespace(ctx, l.env, l.storage, l.CatalogProperties())
}

func (l *Lakekeeper) bootstrap(ctx context.Context) error {
	resp, err := l.client.R().
		SetContext(ctx).
		SetBody(map[string]bool{"accept-terms-of-use": true}).
		Post(l.baseURL + "/management/v1/bootstrap")
	if err == nil && resp.StatusCode() == http.StatusConflict {
		logging.Debug(lakekeeperSubsystem, "Already bootstrapped")
		return nil
	}
	if err := checkResponse(resp, err, "bootstrap lakekeeper"); err != nil {
		return err
	}
	logging.Debug(lakekeeperSubsystem, "Bootstrapped")
	return nil
}

func (l *Lakekeeper) createWarehouse(ctx context.Context) error {
	flavor := "minio"
	if l.s3.AWS {
		flavor = "aws"
	}
	body := lakekeeperWarehouseRequest{
		WarehouseName: lakekeeperWarehouse,
		ProjectID:     lakekeeperProjectID,
		StorageProfile: lakekeeperStorageProfile{
			Type:            "s3",
			Bucket:          l.s3.Bucket,
			KeyPrefix:       lakekeeperKeyPrefix,
			Endpoint:        l.s3.NetworkEndpoint,
			Region:          l.s3.Region,
			PathStyleAccess: true,
			Flavor:          flavor,
			STSEnabled:      false,
		},
		StorageCredential: lakekeeperStorageCredential{
			Type:               "s3",
			CredentialType:     "access-key",
			AWSAccessKeyID:     l.s3.AccessKeyID,
			AWSSecretAccessKey: l.s3.SecretAccessKey,
		},
	}
	resp, err := l.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(l.baseURL + "/management/v1/warehouse")
	if err := checkResponse(resp, err, "create lakekeeper warehouse "+lakekeeperWarehouse); err != nil {
		return err
	}
	logging.Info(lakekeeperSubsystem, "Created warehouse %s on bucket %s", lakekeeperWarehouse, l.s3.Bucket)
	return nil
}

// Teardown stops Lakekeeper and its database.
func (l *Lakekeeper) Teardown(ctx context.Context) error {
	if !l.started {
		return nil
	}
	l.started = false
	return l.env.Compose.Down(ctx, l.project)
}
