package transaction

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestTransaction(t *testing.T, opts ...Option) *Transaction {
	t.Helper()
	tx, err := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return tx
}

// counter is the shared state mutated by addTask.
type counter struct {
	mu    sync.Mutex
	value int
}

func (c *counter) add(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += n
	return c.value
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func addTask(c *counter, n int) *TaskFunc[int] {
	return NewTask[int](TaskName(fmt.Sprintf("add_%d", n)),
		func(ctx context.Context) (int, error) {
			return c.add(n), nil
		},
		func(ctx context.Context) (int, error) {
			return c.add(-n), nil
		},
	)
}

// recorder collects calls from concurrently running tasks.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// testTask counts its invocations and fails a configurable number of times.
// A negative failure count means it never succeeds.
type testTask struct {
	name           TaskName
	irreversible   bool
	applyFailures  int
	revertFailures int
	output         any
	rec            *recorder

	applyCalls  atomic.Int32
	revertCalls atomic.Int32
}

func (tt *testTask) Name() TaskName {
	return tt.name
}

func (tt *testTask) Reversible() bool {
	return !tt.irreversible
}

func (tt *testTask) Apply(ctx context.Context) (any, error) {
	n := int(tt.applyCalls.Add(1))
	if tt.applyFailures < 0 || n <= tt.applyFailures {
		return nil, fmt.Errorf("%s apply failed (attempt %d)", tt.name, n)
	}
	if tt.rec != nil {
		tt.rec.record("apply:" + string(tt.name))
	}
	return tt.output, nil
}

func (tt *testTask) Revert(ctx context.Context) (any, error) {
	if tt.irreversible {
		return nil, ErrNotReversible
	}
	n := int(tt.revertCalls.Add(1))
	if tt.revertFailures < 0 || n <= tt.revertFailures {
		return nil, fmt.Errorf("%s revert failed (attempt %d)", tt.name, n)
	}
	if tt.rec != nil {
		tt.rec.record("revert:" + string(tt.name))
	}
	return tt.output, nil
}

func (tt *testTask) applied() int {
	return int(tt.applyCalls.Load())
}

func (tt *testTask) reverted() int {
	return int(tt.revertCalls.Load())
}
