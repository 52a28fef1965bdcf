// Package registry loads the capability definitions that describe which
// storage and catalog interfaces each storage, catalog and query engine
// implements or consumes.
//
// The definitions live in five YAML files in the database directory, each a
// mapping from a short key to a definition:
//
//	minio:
//	  name: MinIO
//	  implements_storage_interfaces: [s3]
//
// Loading is resilient. A broken file empties its own collection and a broken
// entry is skipped, so the remaining definitions stay usable.
package registry
