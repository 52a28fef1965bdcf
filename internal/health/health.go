package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"icebergtest/internal/config"
	"icebergtest/pkg/logging"

	"github.com/cenkalti/backoff/v5"
	"resty.dev/v3"
)

const healthSubsystem = "Health"

// Check returns nil once the target is ready.
type Check func(ctx context.Context) error

// Policy bounds readiness polling: a fixed interval and a maximum number of
// attempts, after which the wait fails.
type Policy struct {
	Interval time.Duration
	Attempts int
}

// PolicyFromSettings converts the configured health settings.
func PolicyFromSettings(s config.HealthSettings) Policy {
	return Policy{Interval: s.Interval, Attempts: s.Attempts}
}

// ErrNotReady is wrapped by Wait when attempts run out.
var ErrNotReady = errors.New("not ready")

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks a check failure that retrying cannot fix.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Wait polls check until it succeeds, the attempts are exhausted, the check
// returns a Permanent error, or ctx is done.
func Wait(ctx context.Context, name string, policy Policy, check Check) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	attempt := 0
	var permanent *permanentError
	_, err := backoff.Retry(ctx,
		func() (struct{}, error) {
			attempt++
			err := check(ctx)
			if errors.As(err, &permanent) {
				return struct{}{}, backoff.Permanent(permanent.err)
			}
			return struct{}{}, err
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Interval)),
		backoff.WithMaxTries(uint(policy.Attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Debug(healthSubsystem, "%s not ready (attempt %d/%d, retrying in %s): %v",
				name, attempt, policy.Attempts, next, err)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for %s: %w", name, ctxErr)
		}
		if permanent != nil {
			return fmt.Errorf("%s failed health check: %w", name, permanent.err)
		}
		return fmt.Errorf("%s %w after %d attempts: %w", name, ErrNotReady, attempt, err)
	}

	logging.Debug(healthSubsystem, "%s is ready after %d attempt(s)", name, attempt)
	return nil
}

// HTTPStatus checks that url answers with a 2xx status.
func HTTPStatus(client *resty.Client, url string) Check {
	return func(ctx context.Context) error {
		resp, err := client.R().SetContext(ctx).Get(url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("GET %s returned %d", url, resp.StatusCode())
		}
		return nil
	}
}

// HTTPJSON fetches url into a fresh T and hands it to accept. A response
// that arrives but is rejected by accept is retried like any other failure.
func HTTPJSON[T any](client *resty.Client, url string, accept func(T) error) Check {
	return func(ctx context.Context) error {
		var body T
		resp, err := client.R().
			SetContext(ctx).
			SetHeader("Accept", "application/json").
			SetResult(&body).
			Get(url)
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			return fmt.Errorf("GET %s returned %d: %s", url, resp.StatusCode(), resp.String())
		}
		return accept(body)
	}
}
