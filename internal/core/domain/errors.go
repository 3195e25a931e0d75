package domain

import (
	"errors"
	"fmt"
)

// Error kinds form the workflow failure taxonomy. Validation and not-found
// outcomes are never retried; transient failures are retried within the
// owning stage's budget; fatal errors terminate the run.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrTransient  = errors.New("transient failure")
	ErrFatal      = errors.New("fatal workflow error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// StageFailure carries the stage name alongside the error that terminated
// the run, so fatal failures surface verbatim with their origin attached.
type StageFailure struct {
	Stage string
	Err   error
}

func (f *StageFailure) Error() string {
	if f == nil {
		return "stage failure"
	}
	return fmt.Sprintf("stage %s: %v", f.Stage, f.Err)
}

func (f *StageFailure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}
