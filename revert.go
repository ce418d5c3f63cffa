package transaction

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// RevertReport summarises a reverse pass.
type RevertReport struct {
	// Success is true when every compensation succeeded.
	Success bool
	// Result is the value produced by the last unit that was reverted
	// successfully. For a group it holds the results of the reverted members.
	// It is informational only.
	Result any
	// Failed lists the tasks whose compensation failed on every attempt.
	Failed []FailedRevert
}

// FailedTasks returns the tasks listed in Failed.
func (r *RevertReport) FailedTasks() []Task {
	tasks := make([]Task, 0, len(r.Failed))
	for _, f := range r.Failed {
		tasks = append(tasks, f.Task)
	}
	return tasks
}

// Revert compensates every applied unit, most recent first, and empties the
// history. A compensation that fails after all retries does not stop the
// pass; it is listed in the report and Revert returns a *RevertError next to
// the report.
//
// Revert returns ErrIrreversible without doing any work when a task that
// cannot be reverted has been applied.
func (t *Transaction) Revert(ctx context.Context) (*RevertReport, error) {
	ctx, span := t.tracer.Start(ctx, "transaction.Revert", trace.WithAttributes(
		attribute.String("transaction.id", t.id.String()),
	))
	defer span.End()

	if !t.IsRevertable() {
		t.metrics.observeIrreversible()
		span.RecordError(ErrIrreversible)
		span.SetStatus(codes.Error, ErrIrreversible.Error())
		return nil, ErrIrreversible
	}

	report := &RevertReport{}
	for {
		u, ok := t.pop()
		if !ok {
			break
		}

		if u.group {
			t.revertGroup(ctx, u, report)
			continue
		}

		result, failed := t.revertEntry(ctx, u.entries[0])
		if failed != nil {
			report.Failed = append(report.Failed, *failed)
			continue
		}
		report.Result = result
	}

	report.Success = len(report.Failed) == 0
	t.metrics.observeRevert(report.Success)
	span.SetAttributes(attribute.Int("revert.failed", len(report.Failed)))

	if !report.Success {
		err := &RevertError{Report: report}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.WithField("failed", len(report.Failed)).Warn("revert completed with failures")
		return report, err
	}

	t.logger.Debug("transaction reverted")
	return report, nil
}

// pop removes and returns the most recent unit.
func (t *Transaction) pop() (*unit, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.history)
	if n == 0 {
		return nil, false
	}
	u := t.history[n-1]
	t.history[n-1] = nil
	t.history = t.history[:n-1]
	return u, true
}

// revertGroup compensates all members of a group concurrently.
func (t *Transaction) revertGroup(ctx context.Context, u *unit, report *RevertReport) {
	var (
		mu       sync.Mutex
		reverted []any
		g        errgroup.Group
	)

	for _, e := range u.entries {
		g.Go(func() error {
			result, failed := t.revertEntry(ctx, e)

			mu.Lock()
			defer mu.Unlock()
			if failed != nil {
				report.Failed = append(report.Failed, *failed)
			} else {
				reverted = append(reverted, result)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(reverted) > 0 {
		report.Result = reverted
	}
}

// revertEntry runs the compensation of a single entry through the retrier.
// It returns a non-nil FailedRevert when every attempt failed.
func (t *Transaction) revertEntry(ctx context.Context, e *entry) (any, *FailedRevert) {
	log := t.logger.WithFields(logrus.Fields{
		"task":  e.task.Name(),
		"entry": e.id.String(),
	})

	t.record(e, EventRevertStarted, 0, nil)

	result, attempts, err := t.retrier().do(ctx, e.task.Revert, func(err error, attempt int) {
		log.WithError(err).WithField("attempt", attempt).Warn("revert attempt failed, retrying")
		t.metrics.observeRetry(directionRevert)
	})
	t.metrics.observeTask(directionRevert, err)

	if err != nil {
		t.record(e, EventRevertFailed, attempts, err)
		log.WithError(err).WithField("attempts", attempts).Error("failed to revert task, continuing")
		return nil, &FailedRevert{Task: e.task, Attempts: attempts, Err: err}
	}

	t.record(e, EventReverted, attempts, nil)
	log.WithField("attempts", attempts).Debug("task reverted")
	return result, nil
}
