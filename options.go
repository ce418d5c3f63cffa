package transaction

import (
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Transaction at construction time.
type Option func(*Transaction) error

// WithRetries sets the number of extra attempts allowed for every apply and
// revert in the transaction. The default is 0.
func WithRetries(retries int) Option {
	return func(t *Transaction) error {
		if retries < 0 {
			return ErrInvalidRetries
		}
		t.maxRetries = retries
		return nil
	}
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Transaction) error {
		if logger != nil {
			t.logger = logger
		}
		return nil
	}
}

// WithMetrics reports applies, retries and reverts to m.
func WithMetrics(m *Metrics) Option {
	return func(t *Transaction) error {
		t.metrics = m
		return nil
	}
}

// WithJournal records events to j instead of a private journal.
func WithJournal(j *Journal) Option {
	return func(t *Transaction) error {
		if j != nil {
			t.journal = j
		}
		return nil
	}
}

// WithTracer sets the tracer used for Apply, ApplyAll and Revert spans. The
// default is the global tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(t *Transaction) error {
		if tracer != nil {
			t.tracer = tracer
		}
		return nil
	}
}
