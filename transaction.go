package transaction

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/fortressi/transaction"

// entry is a task whose forward application succeeded.
type entry struct {
	id   EntryID
	task Task
}

// unit is one element of the history: a single task, or the members of a
// group applied concurrently by ApplyAll.
type unit struct {
	group   bool
	entries []*entry
}

// Transaction applies tasks and, on request, compensates them in reverse
// order. The history of applied units is owned by the Transaction and is
// never exposed.
//
// Apply, ApplyAll and Revert are meant to be called from one goroutine, one
// call at a time; the members of an ApplyAll group run concurrently.
type Transaction struct {
	id         uuid.UUID
	maxRetries int

	mu         sync.Mutex
	history    []*unit
	revertable bool

	logger  logrus.FieldLogger
	metrics *Metrics
	journal *Journal
	tracer  trace.Tracer
}

// New creates an empty, revertable Transaction.
func New(opts ...Option) (*Transaction, error) {
	t := &Transaction{
		id:         uuid.New(),
		history:    make([]*unit, 0),
		revertable: true,
		logger:     logrus.StandardLogger(),
		journal:    NewJournal(),
		tracer:     otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	t.logger = t.logger.WithField("transaction", t.id.String())
	return t, nil
}

// ID returns the unique identifier of the transaction.
func (t *Transaction) ID() uuid.UUID {
	return t.id
}

// Journal returns the journal the transaction records its events to.
func (t *Transaction) Journal() *Journal {
	return t.journal
}

// IsRevertable reports whether every task applied so far can be reverted.
// Once false it stays false.
func (t *Transaction) IsRevertable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.revertable
}

// Len returns the number of units in the history. A group counts as one.
func (t *Transaction) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.history)
}

// Apply runs task, retrying on failure, and records it in the history once
// it has succeeded. On failure the history is left untouched and an
// *ApplyError wrapping the last error is returned.
func (t *Transaction) Apply(ctx context.Context, task Task) (any, error) {
	ctx, span := t.tracer.Start(ctx, "transaction.Apply", trace.WithAttributes(
		attribute.String("transaction.id", t.id.String()),
		attribute.String("task.name", task.Name().String()),
	))
	defer span.End()

	e, result, err := t.applyTask(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	t.mu.Lock()
	t.history = append(t.history, &unit{entries: []*entry{e}})
	t.markApplied(task)
	t.mu.Unlock()

	return result, nil
}

// ApplyAll runs every task concurrently and returns their results in input
// order. The group takes its place in the history when ApplyAll is called,
// so it is reverted relative to other units in call order.
//
// Members that succeed are recorded even when a sibling fails. A failing
// member does not cancel the others; ApplyAll waits for all of them and
// returns the first failure.
func (t *Transaction) ApplyAll(ctx context.Context, tasks ...Task) ([]any, error) {
	ctx, span := t.tracer.Start(ctx, "transaction.ApplyAll", trace.WithAttributes(
		attribute.String("transaction.id", t.id.String()),
		attribute.Int("group.size", len(tasks)),
	))
	defer span.End()

	results := make([]any, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	group := &unit{group: true, entries: make([]*entry, 0, len(tasks))}
	t.mu.Lock()
	t.history = append(t.history, group)
	t.mu.Unlock()

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			e, result, err := t.applyTask(ctx, task)
			if err != nil {
				return err
			}
			results[i] = result

			t.mu.Lock()
			group.entries = append(group.entries, e)
			t.markApplied(task)
			t.mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return results, nil
}

// applyTask runs the forward side of a task through the retrier and
// journals the outcome.
func (t *Transaction) applyTask(ctx context.Context, task Task) (*entry, any, error) {
	e := &entry{id: uuid.New(), task: task}
	log := t.logger.WithFields(logrus.Fields{
		"task":  task.Name(),
		"entry": e.id.String(),
	})

	t.record(e, EventApplyStarted, 0, nil)

	result, attempts, err := t.retrier().do(ctx, task.Apply, func(err error, attempt int) {
		log.WithError(err).WithField("attempt", attempt).Warn("apply attempt failed, retrying")
		t.metrics.observeRetry(directionApply)
	})
	t.metrics.observeTask(directionApply, err)

	if err != nil {
		t.record(e, EventApplyFailed, attempts, err)
		log.WithError(err).WithField("attempts", attempts).Warn("apply failed")
		return nil, nil, &ApplyError{Task: task.Name(), Attempts: attempts, Err: err}
	}

	t.record(e, EventApplied, attempts, nil)
	log.WithField("attempts", attempts).Debug("task applied")
	return e, result, nil
}

// markApplied must be called with t.mu held.
func (t *Transaction) markApplied(task Task) {
	if task.Reversible() || !t.revertable {
		return
	}
	t.revertable = false
	t.logger.WithField("task", task.Name()).Info("irreversible task applied, transaction can no longer be reverted")
}

func (t *Transaction) retrier() retrier {
	return retrier{maxRetries: uint64(t.maxRetries)}
}

func (t *Transaction) record(e *entry, eventType EventType, attempts int, err error) {
	event := &JournalEvent{
		TransactionID: t.id,
		EntryID:       e.id,
		Task:          e.task.Name(),
		Type:          eventType,
		Attempts:      attempts,
		Err:           err,
	}
	if recErr := t.journal.Record(event); recErr != nil {
		t.logger.WithError(recErr).Warn("failed to record journal event")
	}
}
