package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Startup retry defaults.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// RetryPolicy bounds the startup connectivity check. It is not a per-query
// retry policy.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first failed attempt,
	// so 3 allows at most 4 pings. Zero means a single attempt.
	MaxRetries int
	// Delay is the fixed wait between attempts. Non-positive values use
	// [DefaultRetryDelay].
	Delay time.Duration
	// AttemptTimeout bounds each attempt. Non-positive values leave attempts
	// bounded only by the parent context.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
	}
}

// ConnectionError is returned when the database could not be reached within
// the retry policy. The process should not serve traffic after receiving it.
type ConnectionError struct {
	// Attempts is the number of connection attempts made.
	Attempts int
	Err      error
}

// Error satisfies [error].
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database unreachable after %d attempt(s): %v", e.Attempts, e.Err)
}

// Unwrap returns the last connection failure.
func (e *ConnectionError) Unwrap() error { return e.Err }

// Pinger verifies a database connection. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Initialize checks that conn is reachable, retrying failed attempts with a
// fixed delay according to policy. It returns the number of failed attempts
// that preceded success. Once retries are exhausted a *[ConnectionError] is
// returned and no further attempt is made.
func Initialize(ctx context.Context, logger *slog.Logger, conn Pinger, policy RetryPolicy) (int, error) {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Delay <= 0 {
		policy.Delay = DefaultRetryDelay
	}
	backoff := retry.WithMaxRetries(uint64(policy.MaxRetries), retry.NewConstant(policy.Delay)) //nolint:gosec // non-negative

	failures := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		logger.DebugContext(ctx, "connecting to database", slog.Int("attempt", failures+1))
		if err := ping(ctx, conn, policy.AttemptTimeout); err != nil {
			failures++
			logger.WarnContext(ctx, "unable to connect to database",
				slog.Int("attempt", failures),
				slog.Int("retries_left", max(policy.MaxRetries-failures+1, 0)),
				slog.Any("error", err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "max connection attempts reached", slog.Int("attempts", failures))
		return failures, &ConnectionError{Attempts: failures, Err: err}
	}
	logger.InfoContext(ctx, "database connection established", slog.Int("failed_attempts", failures))
	return failures, nil
}

func ping(ctx context.Context, conn Pinger, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return conn.PingContext(ctx)
}
