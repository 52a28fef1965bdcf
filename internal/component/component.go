package component

import (
	"context"
	"errors"
	"fmt"
)

// Role is the part a component plays in a stack.
type Role string

const (
	RoleStorage     Role = "storage"
	RoleCatalog     Role = "catalog"
	RoleQueryEngine Role = "query_engine"
)

// Roles lists every role in acquisition order.
var Roles = []Role{RoleStorage, RoleCatalog, RoleQueryEngine}

// ErrNotSupported is returned by operations a component cannot perform, such
// as CreateTable on an engine that only reads catalog tables, or a catalog
// that cannot bridge the given storage.
var ErrNotSupported = errors.New("not supported")

// Unsupported wraps ErrNotSupported with context.
func Unsupported(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotSupported)
}

// Component is the lifecycle every role shares.
type Component interface {
	// Name is the registry key the component was built from.
	Name() string
	// Setup acquires all resources and blocks until the component is ready.
	Setup(ctx context.Context) error
	// Teardown releases whatever Setup acquired, even after a partial Setup.
	Teardown(ctx context.Context) error
}

// Storage is object storage holding table data.
type Storage interface {
	Component
	// BucketURL is the table location root, e.g. s3://bucket or abfs://...
	BucketURL() string
	// CatalogProperties are the file IO properties a table-format client
	// needs to read and write this storage from the host.
	CatalogProperties() map[string]string
}

// Catalog is a table metadata service.
type Catalog interface {
	Component
	// CatalogName is the namespace tables are created in.
	CatalogName() string
	// CatalogProperties configure a table-format client on the host.
	CatalogProperties() map[string]string
}

// QueryEngine runs SQL against tables in the stack.
type QueryEngine interface {
	Component
	// LinkTable makes a table created through the catalog visible to the
	// engine. Engines that see catalog tables directly do nothing.
	LinkTable(ctx context.Context, name string) error
	// UnlinkTable reverses LinkTable.
	UnlinkTable(ctx context.Context, name string) error
	// CreateTable creates the customer orders table with engine DDL.
	CreateTable(ctx context.Context, name string) error
	// ExecuteQuery runs one statement. Statements without a result set
	// return an empty, non-nil slice.
	ExecuteQuery(ctx context.Context, sql string) ([][]any, error)
}

// S3Config describes an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	// Endpoint is reachable from the host. Empty means AWS.
	Endpoint string
	// NetworkEndpoint is reachable from containers on the stack network.
	// Empty means AWS.
	NetworkEndpoint string
	// Public is set when Endpoint is reachable from outside the host,
	// either AWS itself or a tunnel.
	Public bool
	// AWS is set for real AWS S3, where IAM roles apply.
	AWS bool
}

// S3Access is implemented by storages that speak the S3 API.
type S3Access interface {
	S3() S3Config
}

// ADLSConfig describes an Azure Data Lake Storage Gen2 container.
type ADLSConfig struct {
	AccountName  string
	Container    string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// ABFSURL is the abfs:// location of the container root.
func (c ADLSConfig) ABFSURL() string {
	return fmt.Sprintf("abfs://%s@%s.dfs.core.windows.net", c.Container, c.AccountName)
}

// DFSEndpoint is the account's Data Lake endpoint.
func (c ADLSConfig) DFSEndpoint() string {
	return fmt.Sprintf("https://%s.dfs.core.windows.net", c.AccountName)
}

// BlobEndpoint is the account's Blob service endpoint.
func (c ADLSConfig) BlobEndpoint() string {
	return fmt.Sprintf("https://%s.blob.core.windows.net", c.AccountName)
}

// ADLSAccess is implemented by storages backed by ADLS.
type ADLSAccess interface {
	ADLS() ADLSConfig
}

// RESTConfig describes how query engines reach an Iceberg REST catalog.
type RESTConfig struct {
	// URI is the REST base reachable from containers on the stack network,
	// or a public URL for hosted catalogs.
	URI string
	// Warehouse is sent as the REST warehouse. Empty means the storage
	// bucket URL.
	Warehouse string
	// Credential and Scope enable OAuth2 client credentials when set.
	Credential string
	Scope      string
	// Public is set when URI is reachable from outside the host.
	Public bool
}

// OAuth2 reports whether the catalog requires OAuth2.
func (c RESTConfig) OAuth2() bool {
	return c.Credential != ""
}

// RESTCatalog is implemented by catalogs that speak the Iceberg REST API.
type RESTCatalog interface {
	REST() RESTConfig
}

// GlueConfig describes an AWS Glue Data Catalog.
type GlueConfig struct {
	Region string
	// Endpoint is the Glue API endpoint.
	Endpoint string
	// RESTURI is Glue's Iceberg REST endpoint.
	RESTURI string
	// Database is the Glue database holding the test tables.
	Database string
}

// GlueCatalog is implemented by catalogs backed by AWS Glue.
type GlueCatalog interface {
	Glue() GlueConfig
}

// Prompter asks the operator for input. Components that need a manual step
// in a vendor console use it to wait for confirmation.
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}
