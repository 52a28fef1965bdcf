package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"icebergtest/pkg/logging"

	"github.com/joho/godotenv"
)

const secretsSubsystem = "Secrets"

// Secret sources, in resolution order.
const (
	SourceDoppler     = "doppler"
	SourceDotenv      = "dotenv"
	SourceEnvironment = "environment"
)

// Well-known secret keys consumed by components.
const (
	KeyAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	KeyAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	KeyAWSRegion          = "AWS_REGION"

	KeyAzureTenantID     = "AZURE_TENANT_ID"
	KeyAzureClientID     = "AZURE_CLIENT_ID"
	KeyAzureClientSecret = "AZURE_CLIENT_SECRET"
	KeyAzureAccountName  = "AZURE_ACCOUNT_NAME"

	KeySnowflakeUser     = "SNOWFLAKE_USER"
	KeySnowflakePassword = "SNOWFLAKE_PASSWORD"
	KeySnowflakeAccount  = "SNOWFLAKE_ACCOUNT"

	KeyOpenCatalogAccount      = "SNOWFLAKE_OPEN_CATALOG_ACCOUNT_NAME"
	KeyOpenCatalogClientID     = "SNOWFLAKE_OPEN_CATALOG_CLIENT_ID"
	KeyOpenCatalogClientSecret = "SNOWFLAKE_OPEN_CATALOG_CLIENT_SECRET"

	KeyNgrokAuthToken = "NGROK_AUTHTOKEN"
)

const defaultAWSRegion = "us-east-1"

// execCommandContext and lookPath are variables to allow mocking in tests
var (
	execCommandContext = exec.CommandContext
	lookPath           = exec.LookPath
)

// Secrets is an immutable view of the credentials available to components.
// It is resolved once at process start and passed by reference; the
// process environment is never modified.
type Secrets struct {
	source string
	values map[string]string
}

// NewSecrets builds a Secrets value from an explicit map.
func NewSecrets(source string, values map[string]string) *Secrets {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Secrets{source: source, values: copied}
}

// SecretOptions controls where ResolveSecrets looks.
type SecretOptions struct {
	// DotenvPath is the .env file consulted when doppler is unavailable.
	DotenvPath string
	// Environ is the base environment, normally os.Environ().
	Environ []string
	// DisableDoppler skips the doppler CLI probe.
	DisableDoppler bool
}

// ResolveSecrets picks exactly one secret source: a configured doppler
// project, then a .env file, then the plain environment. Doppler values
// override the environment; .env values only fill keys the environment
// does not already set.
func ResolveSecrets(ctx context.Context, opts SecretOptions) (*Secrets, error) {
	env := environToMap(opts.Environ)

	if !opts.DisableDoppler && dopplerConfigured(ctx) {
		downloaded, err := downloadDopplerSecrets(ctx)
		if err != nil {
			return nil, err
		}
		logging.Info(secretsSubsystem, "Using secrets from Doppler")
		for k, v := range downloaded {
			env[k] = v
		}
		return &Secrets{source: SourceDoppler, values: env}, nil
	}

	if opts.DotenvPath != "" {
		if _, err := os.Stat(opts.DotenvPath); err == nil {
			fileValues, err := godotenv.Read(opts.DotenvPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", opts.DotenvPath, err)
			}
			logging.Info(secretsSubsystem, "Using secrets from %s", opts.DotenvPath)
			for k, v := range fileValues {
				if _, set := env[k]; !set {
					env[k] = v
				}
			}
			return &Secrets{source: SourceDotenv, values: env}, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", opts.DotenvPath, err)
		}
	}

	logging.Info(secretsSubsystem, "Using secrets from environment")
	return &Secrets{source: SourceEnvironment, values: env}, nil
}

// dopplerConfigured reports whether the doppler CLI is installed and has
// every field of its project configuration set.
func dopplerConfigured(ctx context.Context) bool {
	if _, err := lookPath("doppler"); err != nil {
		return false
	}

	out, err := execCommandContext(ctx, "doppler", "configure", "get", "project", "config", "--json").Output()
	if err != nil {
		logging.Debug(secretsSubsystem, "doppler configure get failed: %v", err)
		return false
	}

	var fields map[string]string
	if err := json.Unmarshal(out, &fields); err != nil || len(fields) == 0 {
		return false
	}
	for _, v := range fields {
		if v == "" {
			return false
		}
	}
	return true
}

func downloadDopplerSecrets(ctx context.Context) (map[string]string, error) {
	out, err := execCommandContext(ctx, "doppler", "secrets", "download", "--no-file", "--format=json").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to download doppler secrets: %w", err)
	}
	var values map[string]string
	if err := json.Unmarshal(out, &values); err != nil {
		return nil, fmt.Errorf("failed to parse doppler secrets: %w", err)
	}
	return values, nil
}

func environToMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Source names where the secrets came from.
func (s *Secrets) Source() string {
	return s.source
}

// Lookup returns a secret and whether it is set.
func (s *Secrets) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Get returns a secret or the empty string.
func (s *Secrets) Get(key string) string {
	return s.values[key]
}

// Require fails with the sorted list of missing or empty keys.
func (s *Secrets) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if s.values[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required secrets (source: %s): %s", s.source, strings.Join(missing, ", "))
	}
	return nil
}

// AWSCredentials are the static AWS credentials for S3, Glue and IAM.
type AWSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// AWS returns the AWS credentials, defaulting the region to us-east-1.
func (s *Secrets) AWS() AWSCredentials {
	region := s.Get(KeyAWSRegion)
	if region == "" {
		region = defaultAWSRegion
	}
	return AWSCredentials{
		AccessKeyID:     s.Get(KeyAWSAccessKeyID),
		SecretAccessKey: s.Get(KeyAWSSecretAccessKey),
		Region:          region,
	}
}

// AzureCredentials identify the service principal used for ADLS.
type AzureCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	AccountName  string
}

// Azure returns the Azure service principal credentials.
func (s *Secrets) Azure() AzureCredentials {
	return AzureCredentials{
		TenantID:     s.Get(KeyAzureTenantID),
		ClientID:     s.Get(KeyAzureClientID),
		ClientSecret: s.Get(KeyAzureClientSecret),
		AccountName:  s.Get(KeyAzureAccountName),
	}
}

// SnowflakeCredentials cover both the SQL endpoint and Open Catalog.
type SnowflakeCredentials struct {
	User     string
	Password string
	Account  string

	OpenCatalogAccount      string
	OpenCatalogClientID     string
	OpenCatalogClientSecret string
}

// Snowflake returns the Snowflake credentials.
func (s *Secrets) Snowflake() SnowflakeCredentials {
	return SnowflakeCredentials{
		User:                    s.Get(KeySnowflakeUser),
		Password:                s.Get(KeySnowflakePassword),
		Account:                 s.Get(KeySnowflakeAccount),
		OpenCatalogAccount:      s.Get(KeyOpenCatalogAccount),
		OpenCatalogClientID:     s.Get(KeyOpenCatalogClientID),
		OpenCatalogClientSecret: s.Get(KeyOpenCatalogClientSecret),
	}
}

// NgrokToken returns the ngrok auth token, empty when tunnels are disabled.
func (s *Secrets) NgrokToken() string {
	return s.Get(KeyNgrokAuthToken)
}
