// Package component defines the lifecycle contract shared by every storage,
// catalog and query engine, and the static table that maps component keys
// to their constructors.
//
// # Roles
//
// A stack is built from up to three components:
//
//   - Storage: object storage holding table data (BucketURL, CatalogProperties)
//   - Catalog: table metadata service bound to one Storage (CatalogName,
//     CatalogProperties)
//   - QueryEngine: SQL endpoint bound to a Storage and an optional Catalog
//     (LinkTable, UnlinkTable, CreateTable, ExecuteQuery)
//
// Constructors take exactly their upstream dependencies. Vendor details a
// downstream component needs, such as S3 credentials or a REST endpoint, are
// exposed through optional capability interfaces (S3Access, ADLSAccess,
// RESTCatalog, GlueCatalog) and discovered with a type assertion.
//
// # Lifecycle
//
// Setup starts the component and returns only once it is ready to serve.
// Teardown releases everything Setup acquired and tolerates a partially
// completed Setup. Components embed Base to track their State.
//
// # Registration
//
// Registry is populated once at startup, see internal/components/builtin:
//
//	reg := component.NewRegistry()
//	_ = reg.RegisterStorage(component.Descriptor{
//	    Key:         "minio",
//	    Description: "MinIO S3-compatible object storage",
//	    Locks:       []string{"port:9000"},
//	}, storage.NewMinio)
//
//	st, err := reg.NewStorage("minio", env)
package component
