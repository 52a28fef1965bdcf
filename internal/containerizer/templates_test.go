package containerizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type composeFile struct {
	Services map[string]struct {
		Image       string            `yaml:"image"`
		Environment map[string]string `yaml:"environment"`
		Command     []string          `yaml:"command"`
		Ports       []string          `yaml:"ports"`
		Networks    []string          `yaml:"networks"`
		Volumes     []string          `yaml:"volumes"`
	} `yaml:"services"`
	Networks map[string]struct {
		External bool `yaml:"external"`
	} `yaml:"networks"`
}

func renderCompose(t *testing.T, name string, data any) composeFile {
	t.Helper()
	out, err := Render(name, data)
	require.NoError(t, err)

	var cf composeFile
	require.NoError(t, yaml.Unmarshal(out, &cf), string(out))
	return cf
}

type minioData struct {
	Common
	Image       string
	AccessKey   string
	SecretKey   string
	APIPort     int
	ConsolePort int
}

func TestRender_MinioWithoutTunnel(t *testing.T) {
	cf := renderCompose(t, "minio.yml.tmpl", minioData{
		Common:      Common{Network: "iceberg-test-ab12"},
		Image:       "minio/minio:latest",
		AccessKey:   "minioadmin",
		SecretKey:   "minioseekrit",
		APIPort:     9000,
		ConsolePort: 9001,
	})

	require.Len(t, cf.Services, 1)
	minio := cf.Services["minio"]
	assert.Equal(t, "minio/minio:latest", minio.Image)
	assert.Equal(t, "minioadmin", minio.Environment["MINIO_ROOT_USER"])
	assert.Equal(t, []string{"9000:9000", "9001:9001"}, minio.Ports)
	assert.Equal(t, []string{"iceberg-test-ab12"}, minio.Networks)
	assert.True(t, cf.Networks["iceberg-test-ab12"].External)
}

func TestRender_MinioWithTunnel(t *testing.T) {
	cf := renderCompose(t, "minio.yml.tmpl", minioData{
		Common: Common{
			Network: "net",
			Tunnel: &Tunnel{
				Service: "minio_ngrok",
				Image:   "ngrok/ngrok:3.19.0-alpine",
				Token:   `tok"en`,
				Domain:  "minio-ab12.ngrok.io",
				Target:  "http://host.docker.internal:9000",
			},
		},
		Image:       "minio/minio:latest",
		AccessKey:   "a",
		SecretKey:   "b",
		APIPort:     9000,
		ConsolePort: 9001,
	})

	require.Len(t, cf.Services, 2)
	tunnel := cf.Services["minio_ngrok"]
	assert.Equal(t, `tok"en`, tunnel.Environment["NGROK_AUTHTOKEN"])
	assert.Equal(t, []string{"http", "http://host.docker.internal:9000", "--domain", "minio-ab12.ngrok.io"}, tunnel.Command)
	assert.Equal(t, []string{"net"}, tunnel.Networks)
}

func TestRender_NessieWarehouseEnv(t *testing.T) {
	cf := renderCompose(t, "nessie.yml.tmpl", struct {
		Common
		Image            string
		PostgresImage    string
		PostgresPassword string
		APIPort          int
		ManagementPort   int
		WarehouseEnv     map[string]string
	}{
		Common:           Common{Network: "net"},
		Image:            "ghcr.io/projectnessie/nessie:0.102.5",
		PostgresImage:    "postgres:15.10",
		PostgresPassword: "pw",
		APIPort:          19120,
		ManagementPort:   19121,
		WarehouseEnv: map[string]string{
			"NESSIE_CATALOG_WAREHOUSES_WAREHOUSE_LOCATION":                "s3://bucket",
			"NESSIE_CATALOG_SERVICE_S3_DEFAULT_OPTIONS_PATH_STYLE_ACCESS": "true",
		},
	})

	nessie := cf.Services["nessie"]
	assert.Equal(t, "s3://bucket", nessie.Environment["NESSIE_CATALOG_WAREHOUSES_WAREHOUSE_LOCATION"])
	assert.Equal(t, "true", nessie.Environment["NESSIE_CATALOG_SERVICE_S3_DEFAULT_OPTIONS_PATH_STYLE_ACCESS"])
	assert.Equal(t, "19120", nessie.Environment["QUARKUS_HTTP_PORT"])
	assert.Contains(t, cf.Services, "nessie_postgres")
}

func TestRender_Polaris(t *testing.T) {
	cf := renderCompose(t, "polaris.yml.tmpl", struct {
		Common
		Image, Region, AccessKeyID, SecretAccessKey string
		Realm, ClientID, ClientSecret               string
		APIPort, ManagementPort                     int
	}{
		Common:          Common{Network: "net"},
		Image:           "apache/polaris:latest",
		Region:          "us-east-1",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		Realm:           "default-realm",
		ClientID:        "root",
		ClientSecret:    "s3cr3t",
		APIPort:         8181,
		ManagementPort:  8182,
	})

	assert.Equal(t, "default-realm,root,s3cr3t", cf.Services["polaris"].Environment["POLARIS_BOOTSTRAP_CREDENTIALS"])
}

func TestRender_Lakekeeper(t *testing.T) {
	cf := renderCompose(t, "lakekeeper.yml.tmpl", struct {
		Common
		Image, PostgresImage, BaseURI, EncryptionKey string
		APIPort                                      int
	}{
		Common:        Common{Network: "net"},
		Image:         "quay.io/lakekeeper/catalog:latest-main",
		PostgresImage: "bitnami/postgresql:16.3.0",
		BaseURI:       "http://server:8181",
		EncryptionKey: "key",
		APIPort:       8181,
	})

	assert.ElementsMatch(t, []string{"server", "migrate", "db"}, keys(cf.Services))
	assert.Equal(t, "http://server:8181", cf.Services["server"].Environment["LAKEKEEPER__BASE_URI"])
}

func TestRender_TrinoFiles(t *testing.T) {
	cf := renderCompose(t, "trino.yml.tmpl", struct {
		Common
		Image    string
		HostPort int
	}{Common: Common{Network: "net"}, Image: "trinodb/trino:469", HostPort: 8081})
	assert.Equal(t, []string{"8081:8080"}, cf.Services["trino"].Ports)
	assert.Equal(t, []string{"./trino:/etc/trino"}, cf.Services["trino"].Volumes)

	node, err := Render("trino-node.properties.tmpl", map[string]string{"Environment": "docker", "NodeID": "ab12"})
	require.NoError(t, err)
	assert.Contains(t, string(node), "node.id=ab12")

	cfg, err := Render("trino-config.properties.tmpl", nil)
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "catalog.management=dynamic")

	jvm, err := Render("trino-jvm.config.tmpl", map[string]string{"MaxHeap": "2G"})
	require.NoError(t, err)
	assert.Contains(t, string(jvm), "-Xmx2G")
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("nope.yml.tmpl", nil)
	assert.Error(t, err)

	_, err = Render("trino-node.properties.tmpl", map[string]string{"Environment": "docker"})
	assert.Error(t, err, "missing keys are rejected")
}

func TestTunnelURL(t *testing.T) {
	tunnel := &Tunnel{Domain: "x.ngrok.io"}
	assert.Equal(t, "https://x.ngrok.io", tunnel.URL())
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
