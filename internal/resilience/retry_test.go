package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return nil
	}, DefaultRetryConfig(), nil)

	if err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	calls := 0
	err := Retry(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, config, nil)

	if err != nil {
		t.Errorf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	wantErr := errors.New("persistent")
	calls := 0
	err := Retry(func() error {
		calls++
		return wantErr
	}, config, nil)

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected last error to be returned, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetry_NonRetryableStopsEarly(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return errors.New("fatal")
	}, DefaultRetryConfig(), func(err error) bool { return false })

	if err == nil {
		t.Error("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{10, 5 * time.Second}, // capped
	}

	for _, tt := range tests {
		got := CalculateBackoff(tt.attempt, 100*time.Millisecond, 5*time.Second, 2.0)
		if got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRetryableNetworkError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		if got := IsRetryableNetworkError(tt.err); got != tt.want {
			t.Errorf("IsRetryableNetworkError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
