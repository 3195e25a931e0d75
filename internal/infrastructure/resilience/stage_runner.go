package resilience

import (
	"context"

	"github.com/creditdesk/riskflow/internal/core/ports"
)

// StageRunner adapts the executor to the ports.RetryRunner contract used by
// the orchestrator, keeping the core free of infrastructure imports.
type StageRunner struct {
	exec *Executor
}

func NewStageRunner(exec *Executor) *StageRunner {
	return &StageRunner{exec: exec}
}

func (r *StageRunner) Run(
	ctx context.Context,
	operation string,
	maxAttempts int,
	fn func(context.Context) error,
	classify func(error) ports.RetryClass,
) error {
	classifier := ErrorClassifier(nil)
	if classify != nil {
		classifier = func(err error) ErrorClassification {
			class := classify(err)
			return ErrorClassification{
				Retryable:     class.Retryable,
				RecordFailure: class.RecordFailure,
			}
		}
	}
	return r.exec.ExecuteN(ctx, operation, maxAttempts, fn, classifier)
}
