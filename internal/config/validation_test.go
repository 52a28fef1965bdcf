package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEntityKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "valid", key: "minio"},
		{name: "valid with underscore", key: "azure_adls"},
		{name: "empty", key: "", wantErr: "is required for storage"},
		{name: "blank", key: "   ", wantErr: "is required for storage"},
		{name: "whitespace", key: "aws glue", wantErr: "cannot contain whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntityKey(tt.key, "storage")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is bad")
	assert.Equal(t, "field 'a': is bad", errs.Error())

	errs.Add("b", "is worse", 3)
	assert.True(t, errs.HasErrors())
	assert.Equal(t, "validation failed: field 'a': is bad; field 'b': is worse", errs.Error())
	assert.Equal(t, 3, errs[1].Value)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, GetDefaultSettings().Validate())

	s := GetDefaultSettings()
	s.DatabaseDir = ""
	s.Docker.ComposeBinary = ""
	s.Health.Interval = 0
	s.TeardownTimeout = -1

	err := s.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 4)
}
