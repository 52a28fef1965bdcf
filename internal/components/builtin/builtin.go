// Package builtin is the static table of every component this harness can
// run. Each entry maps a registry key to its factory, a one-line description
// and the host ports or fixed cloud resources it claims.
package builtin

import (
	"fmt"
	"strconv"

	"icebergtest/internal/component"
	"icebergtest/internal/components/catalog"
	"icebergtest/internal/components/queryengine"
	"icebergtest/internal/components/storage"
)

func port(p int) string {
	return "port:" + strconv.Itoa(p)
}

type storageEntry struct {
	desc    component.Descriptor
	factory component.StorageFactory
}

type catalogEntry struct {
	desc    component.Descriptor
	factory component.CatalogFactory
}

type queryEngineEntry struct {
	desc    component.Descriptor
	factory component.QueryEngineFactory
}

var storages = []storageEntry{
	{
		desc: component.Descriptor{
			Key:         storage.MinioKey,
			Description: "MinIO object storage in a local container",
			Locks:       []string{port(storage.MinioAPIPort), port(9001)},
		},
		factory: storage.NewMinio,
	},
	{
		desc: component.Descriptor{
			Key:         storage.S3Key,
			Description: "AWS S3 bucket created for the run",
		},
		factory: storage.NewS3,
	},
	{
		desc: component.Descriptor{
			Key:         storage.AzureADLSKey,
			Description: "Azure Data Lake Storage Gen2 container created for the run",
		},
		factory: storage.NewAzureADLS,
	},
}

var catalogs = []catalogEntry{
	{
		desc: component.Descriptor{
			Key:         catalog.NessieKey,
			Description: "Project Nessie Iceberg REST catalog backed by PostgreSQL",
			Locks:       []string{port(catalog.NessieAPIPort), port(catalog.NessieManagementPort)},
		},
		factory: catalog.NewNessie,
	},
	{
		desc: component.Descriptor{
			Key:         catalog.PolarisKey,
			Description: "Apache Polaris Iceberg REST catalog",
			Locks:       []string{port(catalog.PolarisAPIPort), port(8182)},
		},
		factory: catalog.NewPolaris,
	},
	{
		desc: component.Descriptor{
			Key:         catalog.LakekeeperKey,
			Description: "Lakekeeper Iceberg REST catalog backed by PostgreSQL",
			Locks:       []string{port(catalog.LakekeeperAPIPort)},
		},
		factory: catalog.NewLakekeeper,
	},
	{
		desc: component.Descriptor{
			Key:         catalog.AWSGlueKey,
			Description: "AWS Glue Data Catalog",
			Locks:       []string{"glue:" + catalog.Namespace},
		},
		factory: catalog.NewAWSGlue,
	},
	{
		desc: component.Descriptor{
			Key:         catalog.SnowflakeKey,
			Description: "Snowflake Open Catalog (hosted Polaris)",
			Locks:       []string{"snowflake:catalog"},
		},
		factory: catalog.NewSnowflake,
	},
}

var queryEngines = []queryEngineEntry{
	{
		desc: component.Descriptor{
			Key:         queryengine.TrinoKey,
			Description: "Trino with a dynamic Iceberg catalog",
			Locks:       []string{"trino"},
		},
		factory: queryengine.NewTrino,
	},
	{
		desc: component.Descriptor{
			Key:         queryengine.SnowflakeKey,
			Description: "Snowflake reading Iceberg tables through a catalog integration",
			Locks:       []string{"snowflake:engine"},
		},
		factory: queryengine.NewSnowflake,
	},
}

// Register adds every builtin component to reg.
func Register(reg *component.Registry) error {
	for _, e := range storages {
		if err := reg.RegisterStorage(e.desc, e.factory); err != nil {
			return fmt.Errorf("failed to register storage: %w", err)
		}
	}
	for _, e := range catalogs {
		if err := reg.RegisterCatalog(e.desc, e.factory); err != nil {
			return fmt.Errorf("failed to register catalog: %w", err)
		}
	}
	for _, e := range queryEngines {
		if err := reg.RegisterQueryEngine(e.desc, e.factory); err != nil {
			return fmt.Errorf("failed to register query engine: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding every builtin component.
func NewRegistry() *component.Registry {
	reg := component.NewRegistry()
	if err := Register(reg); err != nil {
		// The table is static; a failure here is a programming error.
		panic(err)
	}
	return reg
}
