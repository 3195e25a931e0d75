package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creditdesk/riskflow/internal/core/ports"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func retryableClassifier(error) ErrorClassification {
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryableClassifier)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsAtMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.ExecuteN(context.Background(), "op", 2, func(context.Context) error {
		calls++
		return errors.New("still failing")
	}, retryableClassifier)

	if err == nil {
		t.Fatal("expected the final error surfaced")
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestExecuteNonRetryableFailsImmediately(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("bad input")
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestExecuteNilClassifierDoesNotRetry(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	_ = exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("fail")
	}, nil)

	if calls != 1 {
		t.Fatalf("expected the default classifier to stop retries, got %d attempts", calls)
	}
}

func TestExecuteOnRetryHookFires(t *testing.T) {
	cfg := fastConfig()
	var hooks []int
	cfg.OnRetry = func(operation string, attempt int) {
		if operation != "op" {
			t.Errorf("unexpected operation: %s", operation)
		}
		hooks = append(hooks, attempt)
	}
	exec := NewExecutor(cfg)

	_ = exec.ExecuteN(context.Background(), "op", 3, func(context.Context) error {
		return errors.New("transient")
	}, retryableClassifier)

	if len(hooks) != 2 || hooks[0] != 1 || hooks[1] != 2 {
		t.Fatalf("expected hook for attempts 1 and 2, got %v", hooks)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	exec := NewExecutor(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := exec.ExecuteN(ctx, "op", 5, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	}, retryableClassifier)

	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected cancellation to stop retries, got %d attempts", calls)
	}
}

func TestCircuitBreakerOpensOnFailureRatio(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 3
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg)

	for i := 0; i < 3; i++ {
		_ = exec.ExecuteN(context.Background(), "flaky", 1, func(context.Context) error {
			return errors.New("backend down")
		}, retryableClassifier)
	}

	err := exec.ExecuteN(context.Background(), "flaky", 1, func(context.Context) error {
		return nil
	}, retryableClassifier)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestStageRunnerConvertsRetryClass(t *testing.T) {
	runner := NewStageRunner(NewExecutor(fastConfig()))

	calls := 0
	err := runner.Run(context.Background(), "retrieve", 3, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, func(error) ports.RetryClass {
		return ports.RetryClass{Retryable: true, RecordFailure: true}
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}
