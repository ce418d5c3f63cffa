package transaction

import (
	"context"
	"fmt"
)

// TaskName is a human-readable label for a Task. It appears in logs, the
// journal and revert reports; it does not need to be unique.
type TaskName string

// String returns the string representation of the TaskName.
func (n TaskName) String() string {
	return string(n)
}

// Task is a unit of work applied by a Transaction.
//
// Apply performs the forward effect. Revert undoes it and is only invoked for
// tasks whose Apply succeeded. Both may be invoked more than once when the
// transaction is configured with retries, so they must tolerate repetition.
//
// Reversible reports whether the task can be compensated at all. Applying a
// task that is not reversible makes the whole transaction irreversible.
type Task interface {
	Name() TaskName
	Apply(ctx context.Context) (any, error)
	Revert(ctx context.Context) (any, error)
	Reversible() bool
}

// ApplyFunc performs the forward effect of a TaskFunc.
type ApplyFunc[R any] func(ctx context.Context) (R, error)

// RevertFunc compensates the forward effect of a TaskFunc.
type RevertFunc[R any] func(ctx context.Context) (R, error)

// TaskFunc is an implementation of Task that uses ordinary functions.
type TaskFunc[R any] struct {
	name       TaskName
	applyFunc  ApplyFunc[R]
	revertFunc RevertFunc[R]
}

// NewTask constructs a reversible TaskFunc from a pair of functions.
func NewTask[R any](name TaskName, apply ApplyFunc[R], revert RevertFunc[R]) *TaskFunc[R] {
	return &TaskFunc[R]{
		name:       name,
		applyFunc:  apply,
		revertFunc: revert,
	}
}

// NewIrreversibleTask constructs a TaskFunc without a compensation.
func NewIrreversibleTask[R any](name TaskName, apply ApplyFunc[R]) *TaskFunc[R] {
	return NewTask[R](name, apply, nil)
}

// Apply implements the Task interface for TaskFunc.
func (tf *TaskFunc[R]) Apply(ctx context.Context) (any, error) {
	return tf.applyFunc(ctx)
}

// Revert implements the Task interface for TaskFunc.
func (tf *TaskFunc[R]) Revert(ctx context.Context) (any, error) {
	if tf.revertFunc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotReversible, tf.name)
	}
	return tf.revertFunc(ctx)
}

// Reversible implements the Task interface for TaskFunc.
func (tf *TaskFunc[R]) Reversible() bool {
	return tf.revertFunc != nil
}

// Name implements the Task interface for TaskFunc.
func (tf *TaskFunc[R]) Name() TaskName {
	return tf.name
}

// String implements the fmt.Stringer interface for TaskFunc.
func (tf *TaskFunc[R]) String() string {
	return fmt.Sprintf("TaskFunc[%s]", tf.name)
}
