package component

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase_StateChanges(t *testing.T) {
	b := NewBase("minio", RoleStorage)
	assert.Equal(t, "minio", b.Name())
	assert.Equal(t, RoleStorage, b.Role())
	assert.Equal(t, StatePending, b.State())

	type change struct {
		from, to State
		err      error
	}
	var changes []change
	b.SetStateChangeCallback(func(name string, role Role, oldState, newState State, err error) {
		assert.Equal(t, "minio", name)
		assert.Equal(t, RoleStorage, role)
		changes = append(changes, change{oldState, newState, err})
	})

	boom := errors.New("bucket create failed")
	b.UpdateState(StateStarting, nil)
	b.UpdateState(StateStarting, nil)
	b.UpdateState(StateFailed, boom)

	assert.Equal(t, []change{
		{StatePending, StateStarting, nil},
		{StateStarting, StateFailed, boom},
	}, changes)
	assert.Equal(t, StateFailed, b.State())
	assert.Equal(t, boom, b.LastError())
}

func TestBase_CallbackMayReadState(t *testing.T) {
	b := NewBase("trino", RoleQueryEngine)
	var seen State
	b.SetStateChangeCallback(func(string, Role, State, State, error) {
		seen = b.State()
	})
	b.UpdateState(StateReady, nil)
	assert.Equal(t, StateReady, seen)
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("polaris with %s storage", "azure_adls")
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Equal(t, "polaris with azure_adls storage: not supported", err.Error())
}

func TestADLSConfigURLs(t *testing.T) {
	cfg := ADLSConfig{AccountName: "acct", Container: "iceberg-test-1"}
	assert.Equal(t, "abfs://iceberg-test-1@acct.dfs.core.windows.net", cfg.ABFSURL())
	assert.Equal(t, "https://acct.dfs.core.windows.net", cfg.DFSEndpoint())
	assert.Equal(t, "https://acct.blob.core.windows.net", cfg.BlobEndpoint())
}

func TestRESTConfigOAuth2(t *testing.T) {
	assert.False(t, RESTConfig{URI: "http://nessie:19120/iceberg"}.OAuth2())
	assert.True(t, RESTConfig{Credential: "root:s3cr3t"}.OAuth2())
}
