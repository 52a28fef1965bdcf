package catalog

import (
	"context"
	"fmt"

	"icebergtest/internal/component"
	"icebergtest/internal/components/awsenv"
	"icebergtest/internal/config"
	"icebergtest/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
)

const (
	glueSubsystem = "Glue"

	AWSGlueKey = "aws_glue"
)

type glueAPI interface {
	CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	DeleteDatabase(ctx context.Context, params *glue.DeleteDatabaseInput, optFns ...func(*glue.Options)) (*glue.DeleteDatabaseOutput, error)
}

var newGlueClient = func(ctx context.Context, creds config.AWSCredentials) (glueAPI, error) {
	cfg, err := awsenv.LoadConfig(ctx, creds)
	if err != nil {
		return nil, err
	}
	return glue.NewFromConfig(cfg), nil
}

// AWSGlue uses the Glue Data Catalog through Glue's Iceberg REST endpoint
// with SigV4 signing. The regression namespace is a Glue database.
type AWSGlue struct {
	*component.Base
	env     *component.Env
	storage component.Storage
	creds   config.AWSCredentials
	client  glueAPI
	created bool
}

// NewAWSGlue builds the aws_glue catalog.
func NewAWSGlue(env *component.Env, storage component.Storage) (component.Catalog, error) {
	return &AWSGlue{
		Base:    component.NewBase(AWSGlueKey, component.RoleCatalog),
		env:     env,
		storage: storage,
		creds:   env.Secrets.AWS(),
	}, nil
}

func (g *AWSGlue) CatalogName() string {
	return Namespace
}

func (g *AWSGlue) Glue() component.GlueConfig {
	endpoint := fmt.Sprintf("https://glue.%s.amazonaws.com", g.creds.Region)
	return component.GlueConfig{
		Region:   g.creds.Region,
		Endpoint: endpoint,
		RESTURI:  endpoint + "/iceberg",
		Database: g.CatalogName(),
	}
}

func (g *AWSGlue) CatalogProperties() map[string]string {
	cfg := g.Glue()
	return map[string]string{
		"uri":                 cfg.RESTURI,
		"rest.sigv4-enabled":  "true",
		"rest.signing-region": cfg.Region,
		"rest.signing-name":   "glue",
	}
}

func (g *AWSGlue) Setup(ctx context.Context) error {
	client, err := newGlueClient(ctx, g.creds)
	if err != nil {
		return err
	}
	g.client = client

	if _, err := client.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		DatabaseInput: &types.DatabaseInput{
			Name:        aws.String(g.CatalogName()),
			LocationUri: aws.String(g.storage.BucketURL()),
		},
	}); err != nil {
		return fmt.Errorf("failed to create glue database %s: %w", g.CatalogName(), err)
	}
	g.created = true
	logging.Info(glueSubsystem, "Created database %s at %s", g.CatalogName(), g.storage.BucketURL())
	return nil
}

func (g *AWSGlue) Teardown(ctx context.Context) error {
	if !g.created {
		return nil
	}
	if _, err := g.client.DeleteDatabase(ctx, &glue.DeleteDatabaseInput{Name: aws.String(g.CatalogName())}); err != nil {
		return fmt.Errorf("failed to delete glue database %s: %w", g.CatalogName(), err)
	}
	g.created = false
	logging.Info(glueSubsystem, "Deleted database %s", g.CatalogName())
	return nil
}
