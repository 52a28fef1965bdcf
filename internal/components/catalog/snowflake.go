package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"icebergtest/internal/component"
	"icebergtest/internal/components/awsenv"
	"icebergtest/internal/config"
	"icebergtest/pkg/logging"
)

const (
	snowflakeSubsystem = "SnowflakeCatalog"

	SnowflakeKey = "snowflake"

	snowflakeWarehouse = "hack25"
	snowflakeScope     = "PRINCIPAL_ROLE:ALL"
	snowflakeRoleName  = "Hack25S3RoleForSnowflakeCatalog"
)

// Snowflake uses a Snowflake Open Catalog account. The catalog itself has
// to be created by hand in the Open Catalog console; Setup prepares the IAM
// role it needs for S3 buckets and waits for the operator.
type Snowflake struct {
	*component.Base
	env       *component.Env
	storage   component.Storage
	creds     config.SnowflakeCredentials
	role      *awsenv.RoleManager
	namespace bool
}

// NewSnowflake builds the snowflake catalog. The Open Catalog account and
// client credentials must be present in the secrets.
func NewSnowflake(env *component.Env, storage component.Storage) (component.Catalog, error) {
	if err := env.Secrets.Require(
		config.KeyOpenCatalogAccount,
		config.KeyOpenCatalogClientID,
		config.KeyOpenCatalogClientSecret,
	); err != nil {
		return nil, err
	}
	return &Snowflake{
		Base:    component.NewBase(SnowflakeKey, component.RoleCatalog),
		env:     env,
		storage: storage,
		creds:   env.Secrets.Snowflake(),
	}, nil
}

func (s *Snowflake) CatalogName() string {
	return Namespace
}

func (s *Snowflake) uri() string {
	return fmt.Sprintf("https://%s.us-east-1.snowflakecomputing.com/polaris/api/catalog", s.creds.OpenCatalogAccount)
}

func (s *Snowflake) credential() string {
	return s.creds.OpenCatalogClientID + ":" + s.creds.OpenCatalogClientSecret
}

func (s *Snowflake) CatalogProperties() map[string]string {
	return map[string]string{
		"uri":        s.uri(),
		"credential": s.credential(),
		"scope":      snowflakeScope,
		"warehouse":  snowflakeWarehouse,
	}
}

func (s *Snowflake) REST() component.RESTConfig {
	return component.RESTConfig{
		URI:        s.uri(),
		Warehouse:  snowflakeWarehouse,
		Credential: s.credential(),
		Scope:      snowflakeScope,
		Public:     true,
	}
}

// awsBucket returns the bucket when the storage is AWS S3.
func (s *Snowflake) awsBucket() (string, bool) {
	s3, ok := s.storage.(component.S3Access)
	if !ok {
		return "", false
	}
	cfg := s3.S3()
	return cfg.Bucket, cfg.AWS
}

func (s *Snowflake) Setup(ctx context.Context) error {
	bucket, isAWS := s.awsBucket()

	roleARN := "none"
	if isAWS {
		cfg, err := awsenv.LoadConfig(ctx, s.env.Secrets.AWS())
		if err != nil {
			return err
		}
		s.role = awsenv.NewRoleManager(awsenv.NewIAM(cfg), snowflakeRoleName, snowflakeRoleName)
		roleARN, err = s.role.Create(ctx,
			awsenv.NewPolicy(awsenv.AssumeBy(map[string]any{"Service": "lakeformation.amazonaws.com"}, awsenv.PlaceholderExternalID)),
			awsenv.NewPolicy(awsenv.BucketAccess(bucket)...),
		)
		if err != nil {
			return err
		}
	}

	logging.Warn(snowflakeSubsystem, "ACTION REQUIRED: create %s catalog for %s with S3 role ARN %s + catalog role CATALOG_MANAGE_CONTENT",
		snowflakeWarehouse, s.storage.BucketURL(), roleARN)

	if isAWS {
		if err := s.trustCatalogUser(ctx); err != nil {
			return err
		}
	} else if _, err := s.env.Prompt(ctx, "Press enter once the catalog exists"); err != nil {
		return err
	}

	if err := createNamespace(ctx, s.env, s.storage, s.CatalogProperties()); err != nil {
		return err
	}
	s.namespace = true
	return nil
}

// trustCatalogUser asks for the IAM user and external id the new catalog
// shows in the console and lets that user assume the role.
func (s *Snowflake) trustCatalogUser(ctx context.Context) error {
	userARN, err := s.env.Prompt(ctx, "USER ARN: ")
	if err != nil {
		return err
	}
	externalID, err := s.env.Prompt(ctx, "EXTERNAL ID: ")
	if err != nil {
		return err
	}
	userARN, externalID = strings.TrimSpace(userARN), strings.TrimSpace(externalID)
	if userARN == "" || externalID == "" {
		return errors.New("catalog user ARN and external id are required")
	}

	if err := s.role.UpdateTrust(ctx, awsenv.NewPolicy(awsenv.AssumeByAWS(userARN, externalID))); err != nil {
		return err
	}
	return awsenv.WaitForPropagation(ctx)
}

// Teardown deletes the role and the namespace, then waits for the operator
// to delete the catalog. Every step is attempted.
func (s *Snowflake) Teardown(ctx context.Context) error {
	var errs []error
	if s.role != nil {
		if err := s.role.Delete(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.namespace {
		if err := dropNamespace(ctx, s.env, s.storage, s.CatalogProperties()); err != nil {
			errs = append(errs, err)
		} else {
			s.namespace = false
		}
	}

	logging.Warn(snowflakeSubsystem, "ACTION REQUIRED: delete %s catalog", snowflakeWarehouse)
	if _, err := s.env.Prompt(ctx, "Press enter once the catalog is deleted"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
