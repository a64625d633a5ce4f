package utils

import (
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int, retryable func(error) bool) *RetryConfig {
	return &RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Retryable:   retryable,
		Logger:      NewLogger(),
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastRetry(3, nil).Do("op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastRetry(3, nil).Do("op", func() error {
		calls++
		return errors.New("always")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := fastRetry(5, func(err error) bool { return !errors.Is(err, fatal) }).Do("op", func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("err = %v, want the fatal error itself", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries on non-retryable errors)", calls)
	}
}

func TestRetryWrapsLastError(t *testing.T) {
	inner := errors.New("quota exceeded")
	err := fastRetry(2, nil).Do("append rows", func() error { return inner })
	if !errors.Is(err, inner) {
		t.Errorf("exhaustion error should wrap the last failure, got %v", err)
	}
}
