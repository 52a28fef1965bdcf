// Package tableformat is the Iceberg table-format client used from the host.
//
// It wraps github.com/apache/iceberg-go behind a small Catalog interface so
// that components and the SQL suite can create namespaces and tables, load
// Arrow data into them, and drop them again, without depending on the
// iceberg-go API directly. Properties are the string maps produced by
// storages and catalogs, merged with MergeProperties.
package tableformat
