package storage

import (
	"context"
	"errors"
	"testing"

	"icebergtest/internal/component"
	"icebergtest/internal/component/componenttest"
	"icebergtest/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuckets struct {
	existsErrs []error
	exists     bool
	made       []string
	makeErr    error
	endpoint   string
}

func (f *fakeBuckets) BucketExists(context.Context, string) (bool, error) {
	if len(f.existsErrs) > 0 {
		err := f.existsErrs[0]
		f.existsErrs = f.existsErrs[1:]
		return false, err
	}
	return f.exists, nil
}

func (f *fakeBuckets) MakeBucket(_ context.Context, name string, opts minio.MakeBucketOptions) error {
	f.made = append(f.made, name+"@"+opts.Region)
	return f.makeErr
}

func useFakeMinio(t *testing.T, f *fakeBuckets) {
	t.Helper()
	orig := newMinioClient
	newMinioClient = func(endpoint, accessKey, secretKey string) (bucketAPI, error) {
		f.endpoint = endpoint
		return f, nil
	}
	t.Cleanup(func() { newMinioClient = orig })
}

func TestMinio_SetupAndTeardown(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	buckets := &fakeBuckets{existsErrs: []error{errors.New("connection refused")}}
	useFakeMinio(t, buckets)

	st, err := NewMinio(env.Env)
	require.NoError(t, err)
	require.NoError(t, st.Setup(context.Background()))

	bucket := "iceberg-test-" + componenttest.RunName
	assert.Equal(t, "localhost:9000", buckets.endpoint)
	assert.Equal(t, []string{bucket + "@us-east-1"}, buckets.made)

	project, ok := env.Compose.Project("_minio")
	require.True(t, ok)
	assert.Equal(t, "iceberg_test_"+componenttest.RunName+"_minio", project.Name)
	assert.Contains(t, string(project.Compose), "MINIO_ROOT_PASSWORD: \"minioseekrit\"")
	assert.NotContains(t, string(project.Compose), "ngrok")

	require.NoError(t, st.Teardown(context.Background()))
	require.NoError(t, st.Teardown(context.Background()))
	assert.Equal(t, []string{project.Name}, env.Compose.Downs)
}

func TestMinio_Properties(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	st, err := NewMinio(env.Env)
	require.NoError(t, err)

	assert.Equal(t, "s3://iceberg-test-"+componenttest.RunName, st.BucketURL())
	assert.Equal(t, map[string]string{
		"s3.endpoint":          "http://localhost:9000",
		"s3.access-key-id":     "minioadmin",
		"s3.secret-access-key": "minioseekrit",
		"s3.region":            "us-east-1",
	}, st.CatalogProperties())

	s3, ok := st.(component.S3Access)
	require.True(t, ok)
	cfg := s3.S3()
	assert.Equal(t, "http://minio:9000", cfg.NetworkEndpoint)
	assert.False(t, cfg.Public)
	assert.False(t, cfg.AWS)
}

func TestMinio_TunnelEndpoints(t *testing.T) {
	env := componenttest.NewEnv(t, map[string]string{config.KeyNgrokAuthToken: "tok"})
	useFakeMinio(t, &fakeBuckets{exists: true})

	st, err := NewMinio(env.Env)
	require.NoError(t, err)

	cfg := st.(component.S3Access).S3()
	url := "https://icebergtestminio-" + componenttest.RunName + ".ngrok.io"
	assert.Equal(t, url, cfg.Endpoint)
	assert.Equal(t, url, cfg.NetworkEndpoint)
	assert.True(t, cfg.Public)

	require.NoError(t, st.Setup(context.Background()))
	project, _ := env.Compose.Project("_minio")
	assert.Contains(t, string(project.Compose), "minio_ngrok")
}

func TestMinio_ExistingBucketIsReused(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	buckets := &fakeBuckets{exists: true}
	useFakeMinio(t, buckets)

	st, _ := NewMinio(env.Env)
	require.NoError(t, st.Setup(context.Background()))
	assert.Empty(t, buckets.made)
}

func TestMinio_ComposeFailure(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	env.Compose.UpErr = errors.New("port is already allocated")

	st, _ := NewMinio(env.Env)
	err := st.Setup(context.Background())
	require.Error(t, err)
	require.NoError(t, st.Teardown(context.Background()))
	assert.Empty(t, env.Compose.Downs)
}

func TestMinio_NeverReady(t *testing.T) {
	env := componenttest.NewEnv(t, nil)
	down := errors.New("connection refused")
	useFakeMinio(t, &fakeBuckets{existsErrs: []error{down, down, down, down}})

	st, _ := NewMinio(env.Env)
	err := st.Setup(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, down)

	require.NoError(t, st.Teardown(context.Background()))
	assert.Len(t, env.Compose.Downs, 1)
}
