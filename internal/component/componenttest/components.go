package componenttest

import (
	"context"
	"maps"
	"strings"
	"sync"

	"icebergtest/internal/component"
)

// Storage is a scripted storage.
type Storage struct {
	*component.Base
	Recorder    *Recorder
	URL         string
	Props       map[string]string
	SetupErr    error
	TeardownErr error
}

// NewStorage creates a scripted storage named key.
func NewStorage(key string, rec *Recorder) *Storage {
	return &Storage{
		Base:     component.NewBase(key, component.RoleStorage),
		Recorder: rec,
		URL:      "s3://iceberg-test-" + RunName,
		Props:    map[string]string{"s3.region": "us-east-1"},
	}
}

func (s *Storage) Setup(context.Context) error {
	s.Recorder.Record("setup storage:%s", s.Name())
	return s.SetupErr
}

func (s *Storage) Teardown(context.Context) error {
	s.Recorder.Record("teardown storage:%s", s.Name())
	return s.TeardownErr
}

func (s *Storage) BucketURL() string                    { return s.URL }
func (s *Storage) CatalogProperties() map[string]string { return maps.Clone(s.Props) }

// S3Storage is a scripted storage with S3 access.
type S3Storage struct {
	*Storage
	Config component.S3Config
}

// NewS3Storage creates a scripted S3 storage. aws selects real AWS
// semantics; otherwise it looks like minio without a tunnel.
func NewS3Storage(key string, rec *Recorder, aws bool) *S3Storage {
	cfg := component.S3Config{
		Bucket:          "iceberg-test-" + RunName,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioseekrit",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		NetworkEndpoint: "http://minio:9000",
	}
	if aws {
		cfg.AccessKeyID = "AKIAEXAMPLE"
		cfg.SecretAccessKey = "secret"
		cfg.Endpoint = ""
		cfg.NetworkEndpoint = ""
		cfg.Public = true
		cfg.AWS = true
	}
	return &S3Storage{Storage: NewStorage(key, rec), Config: cfg}
}

func (s *S3Storage) S3() component.S3Config { return s.Config }

// ADLSStorage is a scripted storage backed by ADLS.
type ADLSStorage struct {
	*Storage
	Config component.ADLSConfig
}

// NewADLSStorage creates a scripted ADLS storage.
func NewADLSStorage(key string, rec *Recorder) *ADLSStorage {
	cfg := component.ADLSConfig{
		AccountName:  "icebergacct",
		Container:    "iceberg-test-" + RunName,
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
	}
	st := NewStorage(key, rec)
	st.URL = cfg.ABFSURL()
	return &ADLSStorage{Storage: st, Config: cfg}
}

func (s *ADLSStorage) ADLS() component.ADLSConfig { return s.Config }

// Catalog is a scripted catalog.
type Catalog struct {
	*component.Base
	Recorder    *Recorder
	Namespace   string
	Props       map[string]string
	SetupErr    error
	TeardownErr error
}

// NewCatalog creates a scripted catalog named key.
func NewCatalog(key string, rec *Recorder) *Catalog {
	return &Catalog{
		Base:      component.NewBase(key, component.RoleCatalog),
		Recorder:  rec,
		Namespace: "regression",
		Props:     map[string]string{"uri": "http://localhost:19120/iceberg"},
	}
}

func (c *Catalog) Setup(context.Context) error {
	c.Recorder.Record("setup catalog:%s", c.Name())
	return c.SetupErr
}

func (c *Catalog) Teardown(context.Context) error {
	c.Recorder.Record("teardown catalog:%s", c.Name())
	return c.TeardownErr
}

func (c *Catalog) CatalogName() string                  { return c.Namespace }
func (c *Catalog) CatalogProperties() map[string]string { return maps.Clone(c.Props) }

// RESTCatalog is a scripted catalog speaking Iceberg REST.
type RESTCatalog struct {
	*Catalog
	Config component.RESTConfig
}

// NewRESTCatalog creates a scripted REST catalog.
func NewRESTCatalog(key string, rec *Recorder, cfg component.RESTConfig) *RESTCatalog {
	return &RESTCatalog{Catalog: NewCatalog(key, rec), Config: cfg}
}

func (c *RESTCatalog) REST() component.RESTConfig { return c.Config }

// GlueCatalog is a scripted AWS Glue catalog.
type GlueCatalog struct {
	*Catalog
	Config component.GlueConfig
}

// NewGlueCatalog creates a scripted Glue catalog.
func NewGlueCatalog(key string, rec *Recorder) *GlueCatalog {
	return &GlueCatalog{
		Catalog: NewCatalog(key, rec),
		Config: component.GlueConfig{
			Region:   "us-east-1",
			Endpoint: "https://glue.us-east-1.amazonaws.com",
			RESTURI:  "https://glue.us-east-1.amazonaws.com/iceberg",
			Database: "regression",
		},
	}
}

func (c *GlueCatalog) Glue() component.GlueConfig { return c.Config }

// QueryEngine is a scripted query engine. Queries are answered from Results
// by the first registered substring the statement contains.
type QueryEngine struct {
	*component.Base
	Recorder    *Recorder
	SetupErr    error
	TeardownErr error

	mu      sync.Mutex
	Queries []string
	Results map[string][][]any
	// Fail returns an error for statements or table operations that should
	// fail. op is "link", "unlink", "create" or "query".
	Fail func(op, arg string) error
	// Panic makes operations panic instead of failing when Fail matches.
	Panic bool
}

// NewQueryEngine creates a scripted query engine named key.
func NewQueryEngine(key string, rec *Recorder) *QueryEngine {
	return &QueryEngine{
		Base:     component.NewBase(key, component.RoleQueryEngine),
		Recorder: rec,
		Results:  map[string][][]any{},
	}
}

func (q *QueryEngine) Setup(context.Context) error {
	q.Recorder.Record("setup query_engine:%s", q.Name())
	return q.SetupErr
}

func (q *QueryEngine) Teardown(context.Context) error {
	q.Recorder.Record("teardown query_engine:%s", q.Name())
	return q.TeardownErr
}

func (q *QueryEngine) fail(op, arg string) error {
	if q.Fail == nil {
		return nil
	}
	err := q.Fail(op, arg)
	if err != nil && q.Panic {
		panic(err)
	}
	return err
}

func (q *QueryEngine) LinkTable(_ context.Context, name string) error {
	q.Recorder.Record("link %s", name)
	return q.fail("link", name)
}

func (q *QueryEngine) UnlinkTable(_ context.Context, name string) error {
	q.Recorder.Record("unlink %s", name)
	return q.fail("unlink", name)
}

func (q *QueryEngine) CreateTable(_ context.Context, name string) error {
	q.Recorder.Record("create %s", name)
	return q.fail("create", name)
}

func (q *QueryEngine) ExecuteQuery(_ context.Context, sql string) ([][]any, error) {
	q.mu.Lock()
	q.Queries = append(q.Queries, sql)
	q.mu.Unlock()

	if err := q.fail("query", sql); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for substr, rows := range q.Results {
		if strings.Contains(sql, substr) {
			return rows, nil
		}
	}
	return [][]any{}, nil
}
