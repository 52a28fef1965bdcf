package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"icebergtest/internal/component"
	"icebergtest/internal/component/componenttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type polarisServer struct {
	mu       sync.Mutex
	requests []string
	form     map[string]string
	realm    string
	catalog  map[string]polarisCatalog
	grant    polarisGrant
	auth     []string
	token    string
}

func newPolarisServer(t *testing.T, token string) (*polarisServer, *httptest.Server) {
	t.Helper()
	ps := &polarisServer{token: token}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/catalog/v1/oauth/tokens", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		ps.mu.Lock()
		ps.requests = append(ps.requests, "token")
		ps.realm = r.Header.Get("Polaris-Realm")
		ps.form = map[string]string{}
		for k := range r.PostForm {
			ps.form[k] = r.PostForm.Get(k)
		}
		ps.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(polarisToken{AccessToken: ps.token, TokenType: "bearer", ExpiresIn: 3600})
	})
	mux.HandleFunc("POST /api/management/v1/catalogs", func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		ps.requests = append(ps.requests, "catalog")
		ps.auth = append(ps.auth, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ps.catalog))
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("PUT /api/management/v1/catalogs/regression/catalog-roles/catalog_admin/grants", func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		ps.requests = append(ps.requests, "grant")
		ps.auth = append(ps.auth, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ps.grant))
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return ps, srv
}

func TestPolaris_Setup(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	storage := componenttest.NewS3Storage("s3", nil, true)
	ps, srv := newPolarisServer(t, "tok-123")

	cat, err := NewPolaris(env.Env, storage)
	require.NoError(t, err)
	cat.(*Polaris).baseURL = srv.URL

	require.NoError(t, cat.Setup(context.Background()))

	assert.Equal(t, []string{"token", "catalog", "grant"}, ps.requests)
	assert.Equal(t, "default-realm", ps.realm)
	assert.Equal(t, map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     "root",
		"client_secret": "s3cr3t",
		"scope":         "PRINCIPAL_ROLE:ALL",
	}, ps.form)
	assert.Equal(t, []string{"Bearer tok-123", "Bearer tok-123"}, ps.auth)

	created := ps.catalog["catalog"]
	bucketURL := "s3://iceberg-test-" + componenttest.RunName
	assert.Equal(t, "regression", created.Name)
	assert.Equal(t, "INTERNAL", created.Type)
	assert.Equal(t, bucketURL, created.Properties["default-base-location"])
	assert.Equal(t, "S3", created.StorageConfigInfo.StorageType)
	assert.Equal(t, "arn:aws:iam::190332891562:role/hack-25-iceberg", created.StorageConfigInfo.RoleARN)
	assert.Equal(t, []string{bucketURL}, created.StorageConfigInfo.AllowedLocations)
	assert.Equal(t, polarisGrant{Type: "catalog", Privilege: "TABLE_WRITE_DATA"}, ps.grant)

	assert.Equal(t, []string{"CreateNamespace regression"}, env.Tables.Calls)
	props := env.Tables.LastProps()
	assert.Equal(t, srv.URL+"/api/catalog", props["uri"])
	assert.Equal(t, "root:s3cr3t", props["credential"])
	assert.Equal(t, "regression", props["warehouse"])

	project, ok := env.Compose.Project("_polaris")
	require.True(t, ok)
	assert.Contains(t, string(project.Compose), `POLARIS_BOOTSTRAP_CREDENTIALS: "default-realm,root,s3cr3t"`)
	assert.Contains(t, string(project.Compose), `AWS_ACCESS_KEY_ID: "AKIAEXAMPLE"`)

	require.NoError(t, cat.Teardown(context.Background()))
	assert.Equal(t, []string{project.Name}, env.Compose.Downs)
}

func TestPolaris_RejectedToken(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	ps, srv := newPolarisServer(t, "unauthorized_client")

	cat, err := NewPolaris(env.Env, componenttest.NewS3Storage("minio", nil, false))
	require.NoError(t, err)
	cat.(*Polaris).baseURL = srv.URL

	err = cat.Setup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not issue a bearer token")
	assert.Equal(t, []string{"token"}, ps.requests, "a rejected token is not retried")
}

func TestPolaris_RequiresS3(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	_, err := NewPolaris(env.Env, componenttest.NewADLSStorage("azure_adls", nil))
	require.ErrorIs(t, err, component.ErrNotSupported)
}

func TestPolaris_REST(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	cat, err := NewPolaris(env.Env, componenttest.NewS3Storage("minio", nil, false))
	require.NoError(t, err)

	rest := cat.(component.RESTCatalog).REST()
	assert.Equal(t, component.RESTConfig{
		URI:        "http://polaris:8181/api/catalog",
		Warehouse:  "regression",
		Credential: "root:s3cr3t",
		Scope:      "PRINCIPAL_ROLE:ALL",
	}, rest)
	assert.True(t, rest.OAuth2())
}
