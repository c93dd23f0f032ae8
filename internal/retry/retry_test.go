package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/provider"
)

func fastPolicy() Policy {
	return Policy{Operation: "test_op", MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "ok" {
		t.Errorf("Expected result 'ok', got %q", got)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_ReturnsOriginalErrorWhenExhausted(t *testing.T) {
	want := &provider.Error{Provider: "elevenlabs", Message: "boom", StatusCode: 503}
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "", want
	})
	if err != want {
		t.Fatalf("Expected the original error to be returned, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnNonRetryableError(t *testing.T) {
	p := fastPolicy()
	fatal := errors.New("fatal")
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "", fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("Expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDo_WaitsWithExponentialBackoff(t *testing.T) {
	p := Policy{Operation: "timing", MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}

	start := time.Now()
	_, _ = Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", errors.New("always")
	})
	elapsed := time.Since(start)

	// 20ms before the second attempt, 40ms before the third
	if elapsed < 60*time.Millisecond {
		t.Errorf("Expected at least 60ms of backoff, got %v", elapsed)
	}
}

func TestDo_CallsOnAttempt(t *testing.T) {
	p := fastPolicy()
	var attempts []int
	p.OnAttempt = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_, _ = Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", errors.New("nope")
	})

	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("Expected attempts [1 2 3], got %v", attempts)
	}
}

func TestDefaultRetryable(t *testing.T) {
	timeout := &provider.Error{Provider: "elevenlabs", Message: "network failure", Err: context.DeadlineExceeded}
	if !DefaultRetryable(timeout) {
		t.Error("Expected a provider timeout to be retryable")
	}
	if !DefaultRetryable(&provider.Error{Provider: "gemini", Message: "empty"}) {
		t.Error("Expected provider errors to be retryable")
	}
}

func TestDo_RetriesDeadlineExceededFromAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("client timeout: %w", context.DeadlineExceeded)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "ok" {
		t.Errorf("Expected result 'ok', got %q", got)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestDo_StopsWhenCallerContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("aborted")
	})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call after cancellation, got %d", calls)
	}
}

func TestDo_LargeAttemptCountKeepsBoundedDelay(t *testing.T) {
	p := Policy{Operation: "many", MaxAttempts: 64, BaseDelay: time.Second}
	b := p.withDefaults().backOff(context.Background())

	for i := 0; i < 63; i++ {
		wait := b.NextBackOff()
		if wait <= 0 || wait > MaxDelay {
			t.Fatalf("Attempt %d: expected wait in (0, %v], got %v", i+1, MaxDelay, wait)
		}
	}
}
