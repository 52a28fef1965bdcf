package component_test

import (
	"errors"
	"testing"

	"icebergtest/internal/component"
	"icebergtest/internal/component/componenttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *component.Registry {
	t.Helper()
	reg := component.NewRegistry()
	require.NoError(t, reg.RegisterStorage(component.Descriptor{Key: "minio", Description: "MinIO", Locks: []string{"port:9000"}},
		func(env *component.Env) (component.Storage, error) {
			return componenttest.NewS3Storage("minio", nil, false), nil
		}))
	require.NoError(t, reg.RegisterStorage(component.Descriptor{Key: "s3", Description: "S3"},
		func(env *component.Env) (component.Storage, error) {
			return componenttest.NewS3Storage("s3", nil, true), nil
		}))
	require.NoError(t, reg.RegisterCatalog(component.Descriptor{Key: "nessie", Locks: []string{"port:19120", "port:9000"}},
		func(env *component.Env, st component.Storage) (component.Catalog, error) {
			if st == nil {
				return nil, errors.New("storage required")
			}
			return componenttest.NewCatalog("nessie", nil), nil
		}))
	require.NoError(t, reg.RegisterQueryEngine(component.Descriptor{Key: "trino", Locks: []string{"port:8081"}},
		func(env *component.Env, st component.Storage, cat component.Catalog) (component.QueryEngine, error) {
			return componenttest.NewQueryEngine("trino", nil), nil
		}))
	return reg
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := newTestRegistry(t)

	desc, ok := reg.Get(component.RoleStorage, "minio")
	require.True(t, ok)
	assert.Equal(t, component.RoleStorage, desc.Role)
	assert.Equal(t, "MinIO", desc.Description)

	_, ok = reg.Get(component.RoleCatalog, "minio")
	assert.False(t, ok)

	assert.Equal(t, []string{"minio", "s3"}, reg.Keys(component.RoleStorage))
	assert.Equal(t, []string{"nessie"}, reg.Keys(component.RoleCatalog))
	assert.Empty(t, component.NewRegistry().GetByRole(component.RoleQueryEngine))
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.RegisterStorage(component.Descriptor{Key: "minio"}, func(*component.Env) (component.Storage, error) { return nil, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage minio already registered")

	err = reg.RegisterCatalog(component.Descriptor{Key: ""}, func(*component.Env, component.Storage) (component.Catalog, error) { return nil, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty key")

	err = reg.RegisterQueryEngine(component.Descriptor{Key: "spark"}, nil)
	require.Error(t, err)
}

func TestRegistry_Construct(t *testing.T) {
	reg := newTestRegistry(t)
	env := componenttest.NewEnv(t, nil)

	st, err := reg.NewStorage("minio", env.Env)
	require.NoError(t, err)
	assert.Equal(t, "minio", st.Name())

	cat, err := reg.NewCatalog("nessie", env.Env, st)
	require.NoError(t, err)
	assert.Equal(t, "regression", cat.CatalogName())

	qe, err := reg.NewQueryEngine("trino", env.Env, st, nil)
	require.NoError(t, err)
	assert.Equal(t, "trino", qe.Name())

	_, err = reg.NewQueryEngine("spark", env.Env, st, cat)
	require.Error(t, err)
	assert.True(t, component.IsUnknownComponent(err))
	assert.Equal(t, `unknown query_engine "spark" (available: trino)`, err.Error())
}

func TestRegistry_Check(t *testing.T) {
	reg := newTestRegistry(t)

	assert.NoError(t, reg.Check("minio", "nessie", "trino"))
	assert.NoError(t, reg.Check("s3", "", ""))

	err := reg.Check("minio", "polaris", "trino")
	require.Error(t, err)
	var unknown *component.UnknownComponentError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, component.RoleCatalog, unknown.Role)
	assert.Equal(t, []string{"nessie"}, unknown.Known)
}

func TestRegistry_Locks(t *testing.T) {
	reg := newTestRegistry(t)
	assert.Equal(t, []string{"port:19120", "port:8081", "port:9000"}, reg.Locks("minio", "nessie", "trino"))
	assert.Equal(t, []string{"port:8081"}, reg.Locks("s3", "", "trino"))
	assert.Empty(t, reg.Locks("unknown", "", ""))
}
