package storage

import (
	"context"
	"errors"
	"fmt"

	"icebergtest/internal/component"
	"icebergtest/internal/config"
	"icebergtest/pkg/logging"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const (
	azureSubsystem = "AzureADLS"

	AzureADLSKey = "azure_adls"
)

type blobStore interface {
	CreateContainer(ctx context.Context, name string) error
	ListBlobs(ctx context.Context, container string) ([]string, error)
	DeleteBlob(ctx context.Context, container, blob string) error
	DeleteContainer(ctx context.Context, name string) error
}

type azblobStore struct {
	client *azblob.Client
}

func (s *azblobStore) CreateContainer(ctx context.Context, name string) error {
	_, err := s.client.CreateContainer(ctx, name, nil)
	return err
}

func (s *azblobStore) ListBlobs(ctx context.Context, container string) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

func (s *azblobStore) DeleteBlob(ctx context.Context, container, blob string) error {
	_, err := s.client.DeleteBlob(ctx, container, blob, nil)
	return err
}

func (s *azblobStore) DeleteContainer(ctx context.Context, name string) error {
	_, err := s.client.DeleteContainer(ctx, name, nil)
	return err
}

var newBlobStore = func(cfg component.ADLSConfig) (blobStore, error) {
	cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	client, err := azblob.NewClient(cfg.BlobEndpoint(), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return &azblobStore{client: client}, nil
}

// AzureADLS is a container in an ADLS Gen2 storage account, accessed with a
// service principal.
type AzureADLS struct {
	*component.Base
	env     *component.Env
	creds   config.AzureCredentials
	store   blobStore
	created bool
}

// NewAzureADLS builds the azure_adls storage. The service principal and
// account name must be present in the secrets.
func NewAzureADLS(env *component.Env) (component.Storage, error) {
	if err := env.Secrets.Require(
		config.KeyAzureTenantID,
		config.KeyAzureClientID,
		config.KeyAzureClientSecret,
		config.KeyAzureAccountName,
	); err != nil {
		return nil, err
	}
	return &AzureADLS{
		Base:  component.NewBase(AzureADLSKey, component.RoleStorage),
		env:   env,
		creds: env.Secrets.Azure(),
	}, nil
}

// ContainerName is the container created for this run.
func (a *AzureADLS) ContainerName() string {
	return "iceberg-test-" + a.env.RunName()
}

func (a *AzureADLS) ADLS() component.ADLSConfig {
	return component.ADLSConfig{
		AccountName:  a.creds.AccountName,
		Container:    a.ContainerName(),
		TenantID:     a.creds.TenantID,
		ClientID:     a.creds.ClientID,
		ClientSecret: a.creds.ClientSecret,
	}
}

func (a *AzureADLS) BucketURL() string {
	return a.ADLS().ABFSURL()
}

func (a *AzureADLS) CatalogProperties() map[string]string {
	return map[string]string{
		"adls.account-name":  a.creds.AccountName,
		"adls.tenant-id":     a.creds.TenantID,
		"adls.client-id":     a.creds.ClientID,
		"adls.client-secret": a.creds.ClientSecret,
	}
}

func (a *AzureADLS) Setup(ctx context.Context) error {
	store, err := newBlobStore(a.ADLS())
	if err != nil {
		return err
	}
	a.store = store

	if err := store.CreateContainer(ctx, a.ContainerName()); err != nil {
		return fmt.Errorf("failed to create container %s: %w", a.ContainerName(), err)
	}
	a.created = true
	logging.Info(azureSubsystem, "Created container %s in account %s", a.ContainerName(), a.creds.AccountName)
	return nil
}

// Teardown deletes every blob and then the container. Blob deletions that
// fail are collected so the rest are still attempted.
func (a *AzureADLS) Teardown(ctx context.Context) error {
	if !a.created {
		return nil
	}
	name := a.ContainerName()

	blobs, err := a.store.ListBlobs(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to list blobs in %s: %w", name, err)
	}
	var errs []error
	for _, blob := range blobs {
		if err := a.store.DeleteBlob(ctx, name, blob); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete blob %s: %w", blob, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logging.Debug(azureSubsystem, "Deleted %d blobs from %s", len(blobs), name)

	if err := a.store.DeleteContainer(ctx, name); err != nil {
		return fmt.Errorf("failed to delete container %s: %w", name, err)
	}
	a.created = false
	logging.Info(azureSubsystem, "Deleted container %s", name)
	return nil
}
