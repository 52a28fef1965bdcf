package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"icebergtest/internal/component"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/health"
	"icebergtest/pkg/logging"

	"resty.dev/v3"
)

const (
	polarisSubsystem = "Polaris"

	PolarisKey = "polaris"

	polarisImage          = "apache/polaris:latest"
	PolarisAPIPort        = 8181
	polarisManagementPort = 8182
	polarisRealm          = "default-realm"
	polarisClientID       = "root"
	polarisClientSecret   = "s3cr3t"
	polarisScope          = "PRINCIPAL_ROLE:ALL"

	// Storage role Polaris assumes to vend credentials for the bucket.
	polarisRoleARN    = "arn:aws:iam::190332891562:role/hack-25-iceberg"
	polarisExternalID = "hack25-external-id"
	polarisRegion     = "us-east-1"
)

type polarisTemplate struct {
	containerizer.Common
	Image           string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Realm           string
	ClientID        string
	ClientSecret    string
	APIPort         int
	ManagementPort  int
}

type polarisToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type polarisStorageConfig struct {
	StorageType      string   `json:"storageType"`
	RoleARN          string   `json:"roleArn"`
	ExternalID       string   `json:"externalId"`
	Region           string   `json:"region"`
	AllowedLocations []string `json:"allowedLocations"`
}

type polarisCatalog struct {
	Name              string               `json:"name"`
	Type              string               `json:"type"`
	ReadOnly          bool                 `json:"readOnly"`
	Properties        map[string]string    `json:"properties"`
	StorageConfigInfo polarisStorageConfig `json:"storageConfigInfo"`
}

type polarisGrant struct {
	Type      string `json:"type"`
	Privilege string `json:"privilege"`
}

// Polaris runs Apache Polaris and creates an internal catalog over the
// stack's bucket.
type Polaris struct {
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

// NewPolaris builds the polaris catalog. Only S3 storages are supported.
func NewPolaris(env *component.Env, storage component.Storage) (component.Catalog, error) {
	s3, ok := storage.(component.S3Access)
	if !ok {
		return nil, component.Unsupported("polaris with storage %s", storage.Name())
	}
	return &Polaris{
		Base:    component.NewBase(PolarisKey, component.RoleCatalog),
		env:     env,
		storage: storage,
		s3:      s3.S3(),
		common:  env.Common(PolarisKey, PolarisAPIPort),
		project: env.ProjectName(PolarisKey),
		baseURL: "http://localhost:" + strconv.Itoa(PolarisAPIPort),
		client:  newRESTClient(),
	}, nil
}

func (p *Polaris) CatalogName() string {
	return Namespace
}

func (p *Polaris) credential() string {
	return polarisClientID + ":" + polarisClientSecret
}

func (p *Polaris) CatalogProperties() map[string]string {
	return map[string]string{
		"uri":        p.baseURL + "/api/catalog",
		"credential": p.credential(),
		"scope":      polarisScope,
		"warehouse":  p.CatalogName(),
	}
}

func (p *Polaris) REST() component.RESTConfig {
	cfg := component.RESTConfig{
		URI:        fmt.Sprintf("http://%s:%d/api/catalog", PolarisKey, PolarisAPIPort),
		Warehouse:  p.CatalogName(),
		Credential: p.credential(),
		Scope:      polarisScope,
	}
	if p.common.Tunnel != nil {
		cfg.URI = p.common.Tunnel.URL() + "/api/catalog"
		cfg.Public = true
	}
	return cfg
}

func (p *Polaris) Setup(ctx context.Context) error {
	compose, err := containerizer.Render("polaris.yml.tmpl", polarisTemplate{
		Common:          p.common,
		Image:           polarisImage,
		Region:          polarisRegion,
		AccessKeyID:     p.s3.AccessKeyID,
		SecretAccessKey: p.s3.SecretAccessKey,
		Realm:           polarisRealm,
		ClientID:        polarisClientID,
		ClientSecret:    polarisClientSecret,
		APIPort:         PolarisAPIPort,
		ManagementPort:  polarisManagementPort,
	})
	if err != nil {
		return err
	}

	logging.Info(polarisSubsystem, "Starting Polaris (project %s)", p.project)
	if err := p.env.Compose.Up(ctx, containerizer.Project{Name: p.project, Compose: compose}); err != nil {
		return err
	}
	p.started = true

	var token string
	if err := health.Wait(ctx, PolarisKey, p.env.HealthPolicy(), func(ctx context.Context) error {
		var err error
		token, err = p.fetchToken(ctx)
		return err
	}); err != nil {
		return err
	}

	if err := p.createCatalog(ctx, token); err != nil {
		return err
	}
	return createNamespace(ctx, p.env, p.storage, p.CatalogProperties())
}

func (p *Polaris) fetchToken(ctx context.Context) (string, error) {
	var tok polarisToken
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Polaris-Realm", polarisRealm).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     polarisClientID,
			"client_secret": polarisClientSecret,
			"scope":         polarisScope,
		}).
		SetResult(&tok).
		Post(p.baseURL + "/api/catalog/v1/oauth/tokens")
	if err := checkResponse(resp, err, "fetch polaris token"); err != nil {
		return "", err
	}
	if tok.AccessToken == "" || tok.AccessToken == "unauthorized_client" {
		return "", health.Permanent(errors.New("polaris did not issue a bearer token"))
	}
	return tok.AccessToken, nil
}

func (p *Polaris) createCatalog(ctx context.Context, token string) error {
	bucketURL := p.storage.BucketURL()
	body := map[string]polarisCatalog{
		"catalog": {
			Name:       p.CatalogName(),
			Type:       "INTERNAL",
			ReadOnly:   false,
			Properties: map[string]string{"default-base-location": bucketURL},
			StorageConfigInfo: polarisStorageConfig{
				StorageType:      "S3",
				RoleARN:          polarisRoleARN,
				ExternalID:       polarisExternalID,
				Region:           polarisRegion,
				AllowedLocations: []string{bucketURL},
			},
		},
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetBody(body).
		Post(p.baseURL + "/api/management/v1/catalogs")
	if err := checkResponse(resp, err, "create polaris catalog "+p.CatalogName()); err != nil {
		return err
	}
	logging.Info(polarisSubsystem, "Created catalog %s at %s", p.CatalogName(), bucketURL)

	resp, err = p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetBody(polarisGrant{Type: "catalog", Privilege: "TABLE_WRITE_DATA"}).
		Put(fmt.Sprintf("%s/api/management/v1/catalogs/%s/catalog-roles/catalog_admin/grants", p.baseURL, p.CatalogName()))
	if err := checkResponse(resp, err, "grant TABLE_WRITE_DATA"); err != nil {
		return err
	}
	logging.Debug(polarisSubsystem, "Granted TABLE_WRITE_DATA to catalog_admin")
	return nil
}

// Teardown stops Polaris. Its metadata is in memory and goes with it.
func (p *Polaris) Teardown(ctx context.Context) error {
	if !p.started {
		return nil
	}
	p.started = false
	return p.env.Compose.Down(ctx, p.project)
}
