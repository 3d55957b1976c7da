package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const MaxRetries = 3

// RetryableError indicates a transient upstream failure (HTTP 429 or 5xx).
type RetryableError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: retryable error (status %d): %s", e.Service, e.StatusCode, Truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Sleep is the wait between attempts. Tests replace it.
var Sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn up to MaxRetries times, backing off between attempts while fn
// returns a retryable error. The last error is returned.
func Do(ctx context.Context, log *slog.Logger, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = fn(ctx)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == MaxRetries-1 {
			break
		}
		if log != nil {
			log.Warn("retryable error", "op", op, "attempt", attempt, "error", lastErr)
		}
		if err := Sleep(ctx, Backoff(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// Truncate shortens s to n bytes for log and error messages.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
