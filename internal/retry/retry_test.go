package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig(maxRetries int) Config {
	return Config{
		Operation:  "connect to OBS",
		MaxRetries: maxRetries,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
		Timeout:    1 * time.Second,
	}
}

func TestWithRetrySuccess(t *testing.T) {
	callCount := 0
	result, err := WithRetry(context.Background(), testConfig(3), func(ctx context.Context) (string, error) {
		callCount++
		return "connected", nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != "connected" {
		t.Errorf("Expected 'connected', got %s", result)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestWithRetrySuccessAfterRetries(t *testing.T) {
	callCount := 0
	result, err := WithRetry(context.Background(), testConfig(3), func(ctx context.Context) (int, error) {
		callCount++
		if callCount < 3 {
			return 0, errors.New("connection refused")
		}
		return 4455, nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != 4455 {
		t.Errorf("Expected 4455, got %d", result)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestWithRetryFailureAfterMaxRetries(t *testing.T) {
	callCount := 0
	cause := errors.New("connection refused")
	_, err := WithRetry(context.Background(), testConfig(2), func(ctx context.Context) (string, error) {
		callCount++
		return "", cause
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected error to wrap the last failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "connect to OBS") {
		t.Errorf("Expected error to name the operation, got %v", err)
	}
	if callCount != 3 { // MaxRetries + 1
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestWithRetryInfiniteStopsOnCancel(t *testing.T) {
	config := testConfig(0)
	config.InfiniteRetry = true

	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	_, err := WithRetry(ctx, config, func(ctx context.Context) (string, error) {
		callCount++
		if callCount == 5 {
			cancel()
		}
		return "", errors.New("obs not running")
	})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if callCount != 5 {
		t.Errorf("Expected retries beyond MaxRetries until cancellation, got %d calls", callCount)
	}
}

func TestWithRetryContextTimeout(t *testing.T) {
	config := testConfig(10)
	config.BaseDelay = 50 * time.Millisecond
	config.MaxDelay = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WithRetry(ctx, config, func(ctx context.Context) (string, error) {
		return "", errors.New("failure")
	})
	duration := time.Since(start)

	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	if duration > 150*time.Millisecond {
		t.Errorf("Expected operation to timeout around 100ms, took %v", duration)
	}
}

func TestWithRetryPassesAttemptTimeout(t *testing.T) {
	config := testConfig(0)
	config.Timeout = 20 * time.Millisecond

	_, err := WithRetry(context.Background(), config, func(ctx context.Context) (bool, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			return false, errors.New("no deadline")
		}
		if time.Until(deadline) > config.Timeout {
			return false, errors.New("deadline too far")
		}
		return true, nil
	})
	if err != nil {
		t.Errorf("Expected per-attempt deadline, got %v", err)
	}
}

func TestCalculateBackoffDelay(t *testing.T) {
	baseDelay := 10 * time.Millisecond
	maxDelay := 100 * time.Millisecond

	tests := []struct {
		attempt     int
		minDelay    time.Duration
		maxExpected time.Duration
	}{
		{0, 5 * time.Millisecond, 15 * time.Millisecond},
		{1, 10 * time.Millisecond, 30 * time.Millisecond},
		{2, 20 * time.Millisecond, 60 * time.Millisecond},
		{3, 40 * time.Millisecond, 100 * time.Millisecond},
		{4, 50 * time.Millisecond, 100 * time.Millisecond},
		{35, 50 * time.Millisecond, 100 * time.Millisecond},  // must not overflow
		{100, 50 * time.Millisecond, 100 * time.Millisecond}, // must not overflow
	}

	for _, test := range tests {
		for i := 0; i < 10; i++ {
			result := calculateBackoffDelay(test.attempt, baseDelay, maxDelay)
			if result < test.minDelay || result > test.maxExpected {
				t.Errorf("calculateBackoffDelay(%d, %v, %v) = %v, expected between %v and %v",
					test.attempt, baseDelay, maxDelay, result, test.minDelay, test.maxExpected)
			}
		}
	}
}
