package ports

import "context"

// RetryClass tells the retry runner how to treat a failure.
type RetryClass struct {
	Retryable     bool
	RecordFailure bool
}

// RetryRunner applies the centralized retry policy (backoff schedule,
// circuit breaking) to one operation with a per-call attempt budget.
type RetryRunner interface {
	Run(
		ctx context.Context,
		operation string,
		maxAttempts int,
		fn func(context.Context) error,
		classify func(error) RetryClass,
	) error
}
