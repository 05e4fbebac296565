package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Reconcile carries the reconciliation-engine counters.
type Reconcile struct {
	// Events counts inbound webhook events by provider and result
	// (applied, replayed, rejected, failed).
	Events *prometheus.CounterVec
	// Transitions counts executor outcomes by event and result.
	Transitions *prometheus.CounterVec
	// RetryAttempts counts storage-busy retries.
	RetryAttempts prometheus.Counter
	// DispatchFailures counts best-effort notifier failures.
	DispatchFailures prometheus.Counter
}

// NewReconcile registers the engine metrics on the default registry.
func NewReconcile() *Reconcile {
	return NewReconcileWith(prometheus.DefaultRegisterer)
}

// NewReconcileWith registers on reg; tests pass a fresh registry.
func NewReconcileWith(reg prometheus.Registerer) *Reconcile {
	r := &Reconcile{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "reconcile",
			Name:      "events_total",
			Help:      "Inbound webhook events partitioned by provider and result.",
		}, []string{"provider", "result"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "reconcile",
			Name:      "transitions_total",
			Help:      "State transition outcomes partitioned by event and result.",
		}, []string{"event", "result"}),
		RetryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "reconcile",
			Name:      "retry_attempts_total",
			Help:      "Retries taken against transient storage contention.",
		}),
		DispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "reconcile",
			Name:      "dispatch_failures_total",
			Help:      "Best-effort notification deliveries that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.Events, r.Transitions, r.RetryAttempts, r.DispatchFailures)
	}
	return r
}

var Module = fx.Options(
	fx.Provide(NewReconcile),
)
