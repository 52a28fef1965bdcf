package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dopplerMode selects how the fake doppler CLI behaves in the helper process.
var dopplerMode = "configured"

func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "DOPPLER_MODE=" + dopplerMode}
	return cmd
}

func withMockedDoppler(t *testing.T, mode string, installed bool) {
	t.Helper()
	origExec, origLook, origMode := execCommandContext, lookPath, dopplerMode
	t.Cleanup(func() {
		execCommandContext, lookPath, dopplerMode = origExec, origLook, origMode
	})

	execCommandContext = mockExecCommandContext
	dopplerMode = mode
	lookPath = func(file string) (string, error) {
		if installed {
			return "/usr/local/bin/" + file, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) < 2 || args[0] != "doppler" {
		fmt.Fprintf(os.Stderr, "unexpected command %v\n", args)
		os.Exit(2)
	}

	mode := os.Getenv("DOPPLER_MODE")
	switch args[1] {
	case "configure":
		switch mode {
		case "unconfigured":
			fmt.Print(`{"enclave.project":"","enclave.config":""}`)
		case "broken":
			os.Exit(1)
		default:
			fmt.Print(`{"enclave.project":"iceberg","enclave.config":"dev"}`)
		}
		os.Exit(0)
	case "secrets":
		if mode == "download-fails" {
			fmt.Fprint(os.Stderr, "unauthorized")
			os.Exit(1)
		}
		fmt.Print(`{"AWS_ACCESS_KEY_ID":"from-doppler","NGROK_AUTHTOKEN":"tok"}`)
		os.Exit(0)
	}
	os.Exit(2)
}

func TestResolveSecrets_Doppler(t *testing.T) {
	withMockedDoppler(t, "configured", true)

	secrets, err := ResolveSecrets(context.Background(), SecretOptions{
		Environ: []string{"AWS_ACCESS_KEY_ID=from-env", "AWS_REGION=eu-west-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, SourceDoppler, secrets.Source())
	assert.Equal(t, "from-doppler", secrets.Get(KeyAWSAccessKeyID))
	assert.Equal(t, "eu-west-1", secrets.AWS().Region)
	assert.Equal(t, "tok", secrets.NgrokToken())
}

func TestResolveSecrets_DopplerDownloadFailure(t *testing.T) {
	withMockedDoppler(t, "download-fails", true)

	_, err := ResolveSecrets(context.Background(), SecretOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download doppler secrets")
}

func TestResolveSecrets_FallsBackToDotenv(t *testing.T) {
	for _, tc := range []struct {
		name      string
		mode      string
		installed bool
	}{
		{name: "not installed", mode: "configured", installed: false},
		{name: "not configured", mode: "unconfigured", installed: true},
		{name: "configure fails", mode: "broken", installed: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			withMockedDoppler(t, tc.mode, tc.installed)

			dotenv := filepath.Join(t.TempDir(), ".env")
			require.NoError(t, os.WriteFile(dotenv, []byte("AWS_ACCESS_KEY_ID=from-file\nAZURE_TENANT_ID=tenant\n"), 0600))

			secrets, err := ResolveSecrets(context.Background(), SecretOptions{
				DotenvPath: dotenv,
				Environ:    []string{"AWS_ACCESS_KEY_ID=from-env"},
			})
			require.NoError(t, err)

			assert.Equal(t, SourceDotenv, secrets.Source())
			// the environment wins over .env
			assert.Equal(t, "from-env", secrets.AWS().AccessKeyID)
			assert.Equal(t, "tenant", secrets.Azure().TenantID)
		})
	}
}

func TestResolveSecrets_Environment(t *testing.T) {
	withMockedDoppler(t, "configured", false)

	secrets, err := ResolveSecrets(context.Background(), SecretOptions{
		DotenvPath: filepath.Join(t.TempDir(), ".env"),
		Environ:    []string{"SNOWFLAKE_USER=alice", "MALFORMED", "=nokey"},
	})
	require.NoError(t, err)

	assert.Equal(t, SourceEnvironment, secrets.Source())
	assert.Equal(t, "alice", secrets.Snowflake().User)
	_, ok := secrets.Lookup("MALFORMED")
	assert.False(t, ok)
	assert.Equal(t, "us-east-1", secrets.AWS().Region)
}

func TestResolveSecrets_DisableDoppler(t *testing.T) {
	withMockedDoppler(t, "configured", true)

	secrets, err := ResolveSecrets(context.Background(), SecretOptions{DisableDoppler: true})
	require.NoError(t, err)
	assert.Equal(t, SourceEnvironment, secrets.Source())
}

func TestSecrets_Require(t *testing.T) {
	secrets := NewSecrets(SourceEnvironment, map[string]string{
		KeyAWSAccessKeyID:     "id",
		KeyAWSSecretAccessKey: "",
	})

	assert.NoError(t, secrets.Require(KeyAWSAccessKeyID))

	err := secrets.Require(KeyAWSSecretAccessKey, KeyAWSAccessKeyID, KeyAWSRegion)
	require.Error(t, err)
	assert.Equal(t, "missing required secrets (source: environment): AWS_REGION, AWS_SECRET_ACCESS_KEY", err.Error())
}

func TestNewSecrets_CopiesInput(t *testing.T) {
	values := map[string]string{KeyNgrokAuthToken: "a"}
	secrets := NewSecrets(SourceEnvironment, values)
	values[KeyNgrokAuthToken] = "b"

	assert.Equal(t, "a", secrets.NgrokToken())
}
