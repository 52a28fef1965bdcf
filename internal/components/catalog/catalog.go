package catalog

import (
	"context"
	"fmt"
	"time"

	"icebergtest/internal/component"

	"resty.dev/v3"
)

// Namespace is the namespace every catalog creates for the test tables.
const Namespace = "regression"

const restTimeout = 30 * time.Second

func newRESTClient() *resty.Client {
	return resty.New().SetTimeout(restTimeout)
}

// checkResponse turns a transport error or a non-2xx response into an error.
func checkResponse(resp *resty.Response, err error, what string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to %s: %d %s", what, resp.StatusCode(), resp.String())
	}
	return nil
}

// createNamespace opens a table-format client with the storage file IO
// properties overlaid by the catalog's own and creates Namespace.
func createNamespace(ctx context.Context, env *component.Env, storage component.Storage, props map[string]string) error {
	client, err := env.Catalog(ctx, storage.CatalogProperties(), props)
	if err != nil {
		return err
	}
	return client.CreateNamespace(ctx, Namespace)
}

func dropNamespace(ctx context.Context, env *component.Env, storage component.Storage, props map[string]string) error {
	client, err := env.Catalog(ctx, storage.CatalogProperties(), props)
	if err != nil {
		return err
	}
	return client.DropNamespace(ctx, Namespace)
}
