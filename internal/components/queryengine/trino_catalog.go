package queryengine

import (
	"fmt"
	"strings"

	"icebergtest/internal/component"
	"icebergtest/internal/config"
)

// TrinoCatalogName is the Trino catalog the stack's tables are reached
// through.
const TrinoCatalogName = "iceberg_test"

type property struct {
	key, value string
}

type catalogProperties []property

func (p *catalogProperties) add(key, value string) {
	*p = append(*p, property{key: key, value: value})
}

func (p catalogProperties) sql(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "create catalog %s using iceberg with (\n", name)
	for i, prop := range p {
		fmt.Fprintf(&b, "    %q = %s", prop.key, quote(prop.value))
		if i < len(p)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// trinoCatalogSQL builds the dynamic catalog for a storage and catalog
// pair. Glue is reached natively; every other catalog through Iceberg REST.
func trinoCatalogSQL(storage component.Storage, catalog component.Catalog, aws config.AWSCredentials) (string, error) {
	var props catalogProperties

	if glue, ok := catalog.(component.GlueCatalog); ok {
		s3, ok := storage.(component.S3Access)
		if !ok {
			return "", component.Unsupported("trino with glue over storage %s", storage.Name())
		}
		cfg := glue.Glue()
		props.add("iceberg.catalog.type", "glue")
		props.add("iceberg.file-format", "parquet")
		props.add("hive.metastore.glue.region", cfg.Region)
		props.add("hive.metastore.glue.endpoint-url", cfg.Endpoint)
		props.add("hive.metastore.glue.aws-access-key", aws.AccessKeyID)
		props.add("hive.metastore.glue.aws-secret-key", aws.SecretAccessKey)
		props.add("hive.metastore.glue.default-warehouse-dir", "/")
		addS3(&props, s3.S3())
		return props.sql(TrinoCatalogName), nil
	}

	rest, ok := catalog.(component.RESTCatalog)
	if !ok {
		return "", component.Unsupported("trino with catalog %s", catalog.Name())
	}
	cfg := rest.REST()
	props.add("iceberg.catalog.type", "rest")
	props.add("iceberg.rest-catalog.uri", cfg.URI)

	switch st := storage.(type) {
	case component.S3Access:
		warehouse := cfg.Warehouse
		if warehouse == "" {
			warehouse = storage.BucketURL()
		}
		props.add("iceberg.rest-catalog.warehouse", warehouse)
		addOAuth2(&props, cfg)
		props.add("iceberg.file-format", "parquet")
		addS3(&props, st.S3())
	case component.ADLSAccess:
		if cfg.Warehouse != "" {
			props.add("iceberg.rest-catalog.warehouse", cfg.Warehouse)
		}
		addOAuth2(&props, cfg)
		adls := st.ADLS()
		props.add("fs.native-azure.enabled", "true")
		props.add("azure.auth-type", "OAUTH")
		props.add("azure.oauth.tenant-id", adls.TenantID)
		props.add("azure.oauth.client-id", adls.ClientID)
		props.add("azure.oauth.secret", adls.ClientSecret)
		props.add("azure.oauth.endpoint", "https://login.microsoftonline.com/"+adls.TenantID)
	default:
		return "", component.Unsupported("trino with storage %s", storage.Name())
	}
	return props.sql(TrinoCatalogName), nil
}

func addOAuth2(props *catalogProperties, cfg component.RESTConfig) {
	if !cfg.OAuth2() {
		return
	}
	props.add("iceberg.rest-catalog.security", "OAUTH2")
	props.add("iceberg.rest-catalog.oauth2.credential", cfg.Credential)
	if cfg.Scope != "" {
		props.add("iceberg.rest-catalog.oauth2.scope", cfg.Scope)
	}
}

func addS3(props *catalogProperties, cfg component.S3Config) {
	props.add("fs.native-s3.enabled", "true")
	if cfg.NetworkEndpoint != "" {
		props.add("s3.endpoint", cfg.NetworkEndpoint)
	}
	props.add("s3.region", cfg.Region)
	props.add("s3.aws-access-key", cfg.AccessKeyID)
	props.add("s3.aws-secret-key", cfg.SecretAccessKey)
	props.add("s3.path-style-access", "true")
}
