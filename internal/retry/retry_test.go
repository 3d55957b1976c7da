package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := Sleep
	Sleep = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { Sleep = orig })
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	noSleep(t)
	calls := 0
	err := Do(context.Background(), nil, "embed", func(context.Context) error {
		calls++
		if calls < 3 {
			return &RetryableError{Service: "openai", StatusCode: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	noSleep(t)
	calls := 0
	permanent := errors.New("bad request")
	err := Do(context.Background(), nil, "embed", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	noSleep(t)
	calls := 0
	err := Do(context.Background(), nil, "complete", func(context.Context) error {
		calls++
		return &RetryableError{Service: "anthropic", StatusCode: 503}
	})
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if calls != MaxRetries {
		t.Errorf("expected %d calls, got %d", MaxRetries, calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, nil, "embed", func(context.Context) error {
		return &RetryableError{StatusCode: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %s outside [%s, %s)", attempt, d, base, base+base/2)
		}
	}
}
