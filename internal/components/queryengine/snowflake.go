package queryengine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"icebergtest/internal/component"
	"icebergtest/internal/components/awsenv"
	"icebergtest/internal/config"
	"icebergtest/pkg/logging"

	"github.com/snowflakedb/gosnowflake"
)

const (
	snowflakeSubsystem = "Snowflake"

	SnowflakeKey = "snowflake"

	snowflakeRoleName    = "Hack25S3RoleForSnowflake"
	snowflakePolicyName  = "Hack25S3RoleForSnowflakeGlue"
	snowflakeIntegration = "hack_25_iceberg_rest_catalog_int"
	snowflakeVolume      = "hack_25_s3_iceberg_external_volume"
	snowflakeDatabase    = "iceberg_test"
)

// openSnowflake opens a database/sql handle for a gosnowflake config.
var openSnowflake = func(cfg *gosnowflake.Config) (*sql.DB, error) {
	dsn, err := gosnowflake.DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build snowflake DSN: %w", err)
	}
	return sql.Open("snowflake", dsn)
}

// Snowflake reads catalog tables through a catalog integration and an
// external volume. IAM roles are created so Snowflake can reach Glue and S3.
type Snowflake struct {
	*component.Base
	env     *component.Env
	storage component.Storage
	catalog component.Catalog
	creds   config.SnowflakeCredentials
	db      *sql.DB
	role    *awsenv.RoleManager
	created map[string]bool
}

// NewSnowflake builds the snowflake query engine. The catalog must be Glue
// or a REST catalog reachable from the internet.
func NewSnowflake(env *component.Env, storage component.Storage, catalog component.Catalog) (component.QueryEngine, error) {
	if err := env.Secrets.Require(
		config.KeySnowflakeUser,
		config.KeySnowflakePassword,
		config.KeySnowflakeAccount,
	); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, component.Unsupported("snowflake without a catalog")
	}
	if rest, ok := catalog.(component.RESTCatalog); ok && !rest.REST().Public {
		return nil, component.Unsupported("snowflake with catalog %s that is not publicly reachable (set %s)", catalog.Name(), config.KeyNgrokAuthToken)
	}
	if _, isGlue := catalog.(component.GlueCatalog); !isGlue {
		if _, isREST := catalog.(component.RESTCatalog); !isREST {
			return nil, component.Unsupported("snowflake with catalog %s", catalog.Name())
		}
	}
	if s3, ok := storage.(component.S3Access); ok && !s3.S3().Public {
		return nil, component.Unsupported("snowflake with storage %s that is not publicly reachable (set %s)", storage.Name(), config.KeyNgrokAuthToken)
	}
	return &Snowflake{
		Base:    component.NewBase(SnowflakeKey, component.RoleQueryEngine),
		env:     env,
		storage: storage,
		catalog: catalog,
		creds:   env.Secrets.Snowflake(),
		created: map[string]bool{},
	}, nil
}

func (s *Snowflake) awsS3() (component.S3Config, bool) {
	s3, ok := s.storage.(component.S3Access)
	if !ok {
		return component.S3Config{}, false
	}
	cfg := s3.S3()
	return cfg, cfg.AWS
}

func (s *Snowflake) Setup(ctx context.Context) error {
	db, err := openSnowflake(&gosnowflake.Config{
		Account:  s.creds.Account,
		User:     s.creds.User,
		Password: s.creds.Password,
	})
	if err != nil {
		return err
	}
	s.db = db

	glue, isGlue := s.catalog.(component.GlueCatalog)
	s3cfg, isAWS := s.awsS3()

	var accountID, roleARN string
	if isGlue || isAWS {
		awsCfg, err := awsenv.LoadConfig(ctx, s.env.Secrets.AWS())
		if err != nil {
			return err
		}
		accountID, err = awsenv.AccountID(ctx, awsenv.NewSTS(awsCfg))
		if err != nil {
			return err
		}

		var permissions []awsenv.Statement
		if isGlue {
			permissions = append(permissions, awsenv.GlueReadAccess(accountID, glue.Glue().Database))
		}
		if isAWS {
			permissions = append(permissions, awsenv.BucketAccess(s3cfg.Bucket)...)
		}
		s.role = awsenv.NewRoleManager(awsenv.NewIAM(awsCfg), snowflakeRoleName, snowflakePolicyName)
		roleARN, err = s.role.Create(ctx,
			awsenv.NewPolicy(awsenv.AssumeBy(map[string]any{"Service": "lakeformation.amazonaws.com"}, awsenv.PlaceholderExternalID)),
			awsenv.NewPolicy(permissions...),
		)
		if err != nil {
			return err
		}
	}

	if err := s.exec(ctx, "CREATE DATABASE IF NOT EXISTS "+snowflakeDatabase); err != nil {
		return err
	}
	if err := s.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s.%s", snowflakeDatabase, s.catalog.CatalogName())); err != nil {
		return err
	}

	integration, err := s.catalogIntegrationSQL(accountID, roleARN)
	if err != nil {
		return err
	}
	if err := s.exec(ctx, integration); err != nil {
		return err
	}
	s.created["integration"] = true

	volume, err := s.externalVolumeSQL(roleARN)
	if err != nil {
		return err
	}
	if err := s.exec(ctx, volume); err != nil {
		return err
	}
	s.created["volume"] = true

	var trust []awsenv.Statement
	if isGlue {
		props, err := queryProperties(ctx, s.db, "DESCRIBE CATALOG INTEGRATION "+snowflakeIntegration)
		if err != nil {
			return fmt.Errorf("failed to describe catalog integration: %w", err)
		}
		trust = append(trust, awsenv.AssumeByAWS(props["API_AWS_IAM_USER_ARN"], props["API_AWS_EXTERNAL_ID"]))
	}
	if isAWS {
		stmt, err := s.volumeTrust(ctx)
		if err != nil {
			return err
		}
		trust = append(trust, stmt)
	}
	if len(trust) > 0 {
		if err := s.role.UpdateTrust(ctx, awsenv.NewPolicy(trust...)); err != nil {
			return err
		}
		if err := awsenv.WaitForPropagation(ctx); err != nil {
			return err
		}
	}

	if _, err := s.ExecuteQuery(ctx, fmt.Sprintf("SELECT SYSTEM$VERIFY_CATALOG_INTEGRATION(%s)", quote(snowflakeIntegration))); err != nil {
		return fmt.Errorf("catalog integration verification failed: %w", err)
	}
	if _, err := s.ExecuteQuery(ctx, fmt.Sprintf("SELECT SYSTEM$VERIFY_EXTERNAL_VOLUME(%s)", quote(snowflakeVolume))); err != nil {
		return fmt.Errorf("external volume verification failed: %w", err)
	}
	logging.Info(snowflakeSubsystem, "Catalog integration and external volume verified")
	return nil
}

func (s *Snowflake) catalogIntegrationSQL(accountID, roleARN string) (string, error) {
	head := fmt.Sprintf(`CREATE CATALOG INTEGRATION %s
  CATALOG_SOURCE = ICEBERG_REST
  TABLE_FORMAT = ICEBERG
  CATALOG_NAMESPACE = %s
`, snowflakeIntegration, quote(s.catalog.CatalogName()))

	if glue, ok := s.catalog.(component.GlueCatalog); ok {
		cfg := glue.Glue()
		return head + fmt.Sprintf(`  REST_CONFIG = (
    CATALOG_URI = %s
    CATALOG_API_TYPE = AWS_GLUE
    WAREHOUSE = %s
  )
  REST_AUTHENTICATION = (
    TYPE = SIGV4
    SIGV4_IAM_ROLE = %s
    SIGV4_SIGNING_REGION = %s
  )
  ENABLED = TRUE`, quote(cfg.RESTURI), quote(accountID), quote(roleARN), quote(cfg.Region)), nil
	}

	rest, ok := s.catalog.(component.RESTCatalog)
	if !ok {
		return "", component.Unsupported("snowflake with catalog %s", s.catalog.Name())
	}
	cfg := rest.REST()
	warehouse := cfg.Warehouse
	if warehouse == "" {
		warehouse = "warehouse"
	}
	auth := `    TYPE = BEARER
    BEARER_TOKEN = 'x'`
	if cfg.OAuth2() {
		id, secret, _ := strings.Cut(cfg.Credential, ":")
		auth = fmt.Sprintf(`    TYPE = OAUTH
    OAUTH_CLIENT_ID = %s
    OAUTH_CLIENT_SECRET = %s
    OAUTH_ALLOWED_SCOPES = (%s)`, quote(id), quote(secret), quote(cfg.Scope))
	}
	return head + fmt.Sprintf(`  REST_CONFIG = (
    CATALOG_URI = %s
    CATALOG_API_TYPE = PUBLIC
    WAREHOUSE = %s
  )
  REST_AUTHENTICATION = (
%s
  )
  ENABLED = TRUE`, quote(cfg.URI), quote(warehouse), auth), nil
}

func (s *Snowflake) externalVolumeSQL(roleARN string) (string, error) {
	var location string
	switch st := s.storage.(type) {
	case component.S3Access:
		cfg := st.S3()
		if cfg.AWS {
			location = fmt.Sprintf(`      NAME = 'default'
      STORAGE_PROVIDER = 'S3'
      STORAGE_BASE_URL = %s
      STORAGE_AWS_ROLE_ARN = %s`, quote(s.storage.BucketURL()), quote(roleARN))
		} else {
			location = fmt.Sprintf(`      NAME = 'default'
      STORAGE_PROVIDER = 'S3COMPAT'
      STORAGE_BASE_URL = %s
      CREDENTIALS = (
        AWS_KEY_ID = %s
        AWS_SECRET_KEY = %s
      )
      STORAGE_ENDPOINT = %s`,
				quote(strings.Replace(s.storage.BucketURL(), "s3:", "s3compat:", 1)),
				quote(cfg.AccessKeyID), quote(cfg.SecretAccessKey),
				quote(strings.TrimPrefix(cfg.Endpoint, "https://")))
		}
	case component.ADLSAccess:
		cfg := st.ADLS()
		location = fmt.Sprintf(`      NAME = 'default'
      STORAGE_PROVIDER = 'AZURE'
      STORAGE_BASE_URL = %s
      AZURE_TENANT_ID = %s`,
			quote(fmt.Sprintf("azure://%s.blob.core.windows.net/%s/", cfg.AccountName, cfg.Container)),
			quote(cfg.TenantID))
	default:
		return "", component.Unsupported("snowflake with storage %s", s.storage.Name())
	}
	return fmt.Sprintf(`CREATE EXTERNAL VOLUME %s
  STORAGE_LOCATIONS = (
    (
%s
    )
  )`, snowflakeVolume, location), nil
}

type storageLocation struct {
	UserARN    string `json:"STORAGE_AWS_IAM_USER_ARN"`
	ExternalID string `json:"STORAGE_AWS_EXTERNAL_ID"`
}

// volumeTrust reads the IAM user Snowflake uses for the external volume.
func (s *Snowflake) volumeTrust(ctx context.Context) (awsenv.Statement, error) {
	props, err := queryProperties(ctx, s.db, "DESCRIBE EXTERNAL VOLUME "+snowflakeVolume)
	if err != nil {
		return awsenv.Statement{}, fmt.Errorf("failed to describe external volume: %w", err)
	}
	raw, ok := props["STORAGE_LOCATION_1"]
	if !ok {
		return awsenv.Statement{}, errors.New("external volume has no STORAGE_LOCATION_1")
	}
	var loc storageLocation
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return awsenv.Statement{}, fmt.Errorf("failed to parse STORAGE_LOCATION_1: %w", err)
	}
	return awsenv.AssumeByAWS(loc.UserARN, loc.ExternalID), nil
}

func (s *Snowflake) exec(ctx context.Context, stmt string) error {
	rows, err := s.ExecuteQuery(ctx, stmt)
	if err != nil {
		return err
	}
	logging.Debug(snowflakeSubsystem, "%v", rows)
	return nil
}

// Teardown drops the integration and the volume, deletes the role and
// closes the connection. Every step is attempted.
func (s *Snowflake) Teardown(ctx context.Context) error {
	var errs []error
	if s.db != nil {
		if s.created["integration"] {
			if err := s.exec(ctx, "DROP CATALOG INTEGRATION IF EXISTS "+snowflakeIntegration); err != nil {
				errs = append(errs, err)
			}
		}
		if s.created["volume"] {
			if err := s.exec(ctx, "DROP EXTERNAL VOLUME IF EXISTS "+snowflakeVolume); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if s.role != nil {
		if err := s.role.Delete(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close snowflake connection: %w", err))
		}
		s.db = nil
	}
	s.created = map[string]bool{}
	return errors.Join(errs...)
}

func (s *Snowflake) LinkTable(ctx context.Context, name string) error {
	return s.exec(ctx, fmt.Sprintf(`CREATE ICEBERG TABLE %s
  EXTERNAL_VOLUME = %s
  CATALOG = %s
  CATALOG_TABLE_NAME = %s
  CATALOG_NAMESPACE = %s`,
		name, quote(snowflakeVolume), quote(snowflakeIntegration),
		quote(TableName(name)), quote(s.catalog.CatalogName())))
}

func (s *Snowflake) UnlinkTable(ctx context.Context, name string) error {
	return s.exec(ctx, "DROP ICEBERG TABLE IF EXISTS "+name)
}

// CreateTable is unsupported: catalog-linked tables are read-only here.
func (s *Snowflake) CreateTable(context.Context, string) error {
	return component.Unsupported("snowflake CREATE TABLE")
}

func (s *Snowflake) ExecuteQuery(ctx context.Context, stmt string) ([][]any, error) {
	if s.db == nil {
		return nil, errors.New("snowflake is not connected")
	}
	logging.Debug(snowflakeSubsystem, "Executing query: %s", stmt)
	rows, err := queryRows(ctx, s.db, stmt)
	if err != nil {
		return nil, fmt.Errorf("snowflake query failed: %w", err)
	}
	return rows, nil
}
