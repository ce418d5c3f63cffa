package transaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrIrreversible is returned by Revert when a task without a
	// compensation has been applied.
	ErrIrreversible = errors.New("transaction is irreversible")

	// ErrNotReversible is returned when Revert is invoked on a task that has
	// no compensation.
	ErrNotReversible = errors.New("task is not reversible")

	// ErrInvalidRetries indicates a negative retry budget.
	ErrInvalidRetries = errors.New("retries must not be negative")
)

// ApplyError represents a task whose forward application failed on every
// attempt.
type ApplyError struct {
	Task     TaskName
	Attempts int
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %q failed after %d attempt(s): %v", e.Task, e.Attempts, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// FailedRevert records a compensation that failed on every attempt.
type FailedRevert struct {
	Task     Task
	Attempts int
	Err      error
}

// RevertError is returned by Revert when the reverse pass completed but one
// or more compensations failed. The report lists each of them.
type RevertError struct {
	Report *RevertReport
}

func (e *RevertError) Error() string {
	names := make([]string, 0, len(e.Report.Failed))
	for _, f := range e.Report.Failed {
		names = append(names, string(f.Task.Name()))
	}
	return fmt.Sprintf("revert failed for %d task(s): %s", len(names), strings.Join(names, ", "))
}

// Unwrap exposes the underlying compensation errors to errors.Is/As.
func (e *RevertError) Unwrap() []error {
	errs := make([]error, 0, len(e.Report.Failed))
	for _, f := range e.Report.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// Permanent wraps err so the transaction stops retrying the current task.
// The wrapped error is what the caller eventually observes.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
