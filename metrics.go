package transaction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "transaction"

// Outcome label values.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Direction label values.
const (
	directionApply  = "apply"
	directionRevert = "revert"
)

// Metrics holds the Prometheus collectors shared by every Transaction that
// was constructed with WithMetrics.
type Metrics struct {
	tasks        *prometheus.CounterVec
	retries      *prometheus.CounterVec
	reverts      *prometheus.CounterVec
	irreversible prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tasks_total",
			Help:      "Tasks applied or reverted, by direction and outcome.",
		}, []string{"direction", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retries_total",
			Help:      "Retried task attempts, by direction.",
		}, []string{"direction"}),
		reverts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reverts_total",
			Help:      "Completed reverse passes, by outcome.",
		}, []string{"outcome"}),
		irreversible: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "irreversible_reverts_total",
			Help:      "Revert calls rejected because the transaction was irreversible.",
		}),
	}
}

func (m *Metrics) observeTask(direction string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.tasks.WithLabelValues(direction, outcome).Inc()
}

func (m *Metrics) observeRetry(direction string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(direction).Inc()
}

func (m *Metrics) observeRevert(success bool) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if !success {
		outcome = outcomeFailure
	}
	m.reverts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeIrreversible() {
	if m == nil {
		return
	}
	m.irreversible.Inc()
}
