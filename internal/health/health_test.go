package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"icebergtest/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"
)

var fastPolicy = Policy{Interval: time.Millisecond, Attempts: 5}

func TestWait_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Wait(context.Background(), "minio", fastPolicy, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWait_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Wait(context.Background(), "nessie", fastPolicy, func(context.Context) error {
		calls++
		return errors.New("status DOWN")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "status DOWN")
	assert.Contains(t, err.Error(), "after 5 attempts")
	assert.Equal(t, 5, calls)
}

func TestWait_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("bad credentials")
	err := Wait(context.Background(), "polaris", fastPolicy, func(context.Context) error {
		calls++
		return Permanent(boom)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 1, calls)
}

func TestWait_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Wait(ctx, "trino", Policy{Interval: time.Hour, Attempts: 10}, func(context.Context) error {
		cancel()
		return errors.New("starting")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	_ = Wait(context.Background(), "x", Policy{Interval: time.Millisecond}, func(context.Context) error {
		calls++
		return errors.New("no")
	})
	assert.Equal(t, 1, calls)
}

func TestPolicyFromSettings(t *testing.T) {
	p := PolicyFromSettings(config.HealthSettings{Interval: 3 * time.Second, Attempts: 7})
	assert.Equal(t, Policy{Interval: 3 * time.Second, Attempts: 7}, p)
}

func TestHTTPStatus(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := resty.New()
	defer client.Close()
	check := HTTPStatus(client, srv.URL+"/health")

	err := check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	healthy.Store(true)
	assert.NoError(t, check(context.Background()))
}

func TestHTTPJSON(t *testing.T) {
	var status atomic.Value
	status.Store("DOWN")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"` + status.Load().(string) + `"}`))
	}))
	defer srv.Close()

	client := resty.New()
	defer client.Close()

	type quarkusHealth struct {
		Status string `json:"status"`
	}
	check := HTTPJSON(client, srv.URL+"/q/health", func(h quarkusHealth) error {
		if h.Status != "UP" {
			return errors.New("status " + h.Status)
		}
		return nil
	})

	go func() {
		time.Sleep(5 * time.Millisecond)
		status.Store("UP")
	}()

	err := Wait(context.Background(), "nessie", Policy{Interval: 5 * time.Millisecond, Attempts: 200}, check)
	assert.NoError(t, err)
}
