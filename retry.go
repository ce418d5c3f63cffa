package transaction

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retrier runs an operation up to maxRetries+1 times back to back.
type retrier struct {
	maxRetries uint64
}

// retryNotify is called after every failed attempt that will be retried.
type retryNotify func(err error, attempt int)

// do runs fn until it succeeds or the budget is spent. It returns the result
// of the successful attempt, the number of attempts made and the error of the
// last attempt. A cancelled ctx ends the loop after the current attempt.
func (r retrier) do(ctx context.Context, fn func(context.Context) (any, error), notify retryNotify) (any, int, error) {
	var (
		result   any
		attempts int
	)

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, r.maxRetries), ctx)

	op := func() error {
		attempts++
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	onRetry := func(err error, _ time.Duration) {
		if notify != nil {
			notify(err, attempts)
		}
	}

	if err := backoff.RetryNotify(op, policy, onRetry); err != nil {
		return nil, attempts, err
	}
	return result, attempts, nil
}
