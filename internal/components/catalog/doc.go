// Package catalog implements the Iceberg catalogs a stack can run against:
// self-hosted REST catalogs started with compose (nessie, polaris,
// lakekeeper) and hosted ones (AWS Glue, Snowflake Open Catalog).
//
// Every catalog exposes its tables under the "regression" namespace, which
// Setup creates and Teardown removes along with the catalog itself.
package catalog
