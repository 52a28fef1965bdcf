// Package storage implements the object storage components: a local MinIO
// container, an AWS S3 bucket, and an Azure Data Lake Storage container.
//
// Every storage creates one bucket (or container) named after the run, so
// concurrent runs never share data, and removes what it created on
// Teardown.
package storage
