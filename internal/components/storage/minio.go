package storage

import (
	"context"
	"fmt"
	"strconv"

	"icebergtest/internal/component"
	"icebergtest/internal/containerizer"
	"icebergtest/internal/health"
	"icebergtest/pkg/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	minioSubsystem = "MinIO"

	MinioKey         = "minio"
	minioImage       = "minio/minio:RELEASE.2025-02-03T21-03-04Z"
	minioAccessKey   = "minioadmin"
	minioSecretKey   = "minioseekrit"
	MinioAPIPort     = 9000
	minioConsolePort = 9001
	minioRegion      = "us-east-1"
)

type bucketAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

var newMinioClient = func(endpoint, accessKey, secretKey string) (bucketAPI, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
}

type minioTemplate struct {
	containerizer.Common
	Image       string
	AccessKey   string
	SecretKey   string
	APIPort     int
	ConsolePort int
}

// Minio runs MinIO in a container on the stack network. When tunnels are
// enabled the S3 API is also published through ngrok so hosted engines can
// reach it.
type Minio struct {
	*component.Base
	env     *component.Env
	common  containerizer.Common
	project string
	started bool
}

// NewMinio builds the minio storage.
func NewMinio(env *component.Env) (component.Storage, error) {
	return &Minio{
		Base:    component.NewBase(MinioKey, component.RoleStorage),
		env:     env,
		common:  env.Common(MinioKey, MinioAPIPort),
		project: env.ProjectName(MinioKey),
	}, nil
}

// BucketName is the bucket created for this run.
func (m *Minio) BucketName() string {
	return "iceberg-test-" + m.env.RunName()
}

func (m *Minio) BucketURL() string {
	return "s3://" + m.BucketName()
}

func (m *Minio) S3() component.S3Config {
	cfg := component.S3Config{
		Bucket:          m.BucketName(),
		AccessKeyID:     minioAccessKey,
		SecretAccessKey: minioSecretKey,
		Region:          minioRegion,
		Endpoint:        "http://localhost:" + strconv.Itoa(MinioAPIPort),
		NetworkEndpoint: "http://minio:" + strconv.Itoa(MinioAPIPort),
	}
	if m.common.Tunnel != nil {
		cfg.Endpoint = m.common.Tunnel.URL()
		cfg.NetworkEndpoint = m.common.Tunnel.URL()
		cfg.Public = true
	}
	return cfg
}

func (m *Minio) CatalogProperties() map[string]string {
	cfg := m.S3()
	return map[string]string{
		"s3.endpoint":          cfg.Endpoint,
		"s3.access-key-id":     cfg.AccessKeyID,
		"s3.secret-access-key": cfg.SecretAccessKey,
		"s3.region":            cfg.Region,
	}
}

func (m *Minio) Setup(ctx context.Context) error {
	compose, err := containerizer.Render("minio.yml.tmpl", minioTemplate{
		Common:      m.common,
		Image:       minioImage,
		AccessKey:   minioAccessKey,
		SecretKey:   minioSecretKey,
		APIPort:     MinioAPIPort,
		ConsolePort: minioConsolePort,
	})
	if err != nil {
		return err
	}

	logging.Info(minioSubsystem, "Starting MinIO (project %s)", m.project)
	if err := m.env.Compose.Up(ctx, containerizer.Project{Name: m.project, Compose: compose}); err != nil {
		return err
	}
	m.started = true

	client, err := newMinioClient(fmt.Sprintf("localhost:%d", MinioAPIPort), minioAccessKey, minioSecretKey)
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := m.BucketName()
	var exists bool
	if err := health.Wait(ctx, "minio", m.env.HealthPolicy(), func(ctx context.Context) error {
		var err error
		exists, err = client.BucketExists(ctx, bucket)
		return err
	}); err != nil {
		return err
	}
	if exists {
		logging.Info(minioSubsystem, "Bucket %s already exists", bucket)
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: minioRegion}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	logging.Info(minioSubsystem, "Created bucket %s", bucket)
	return nil
}

// Teardown stops the container; the bucket goes with its volume.
func (m *Minio) Teardown(ctx context.Context) error {
	if !m.started {
		return nil
	}
	m.started = false
	return m.env.Compose.Down(ctx, m.project)
}
