// Package metrics provides Prometheus metrics for the stake pool runtime and
// its RPC server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stakepool"

// Outcome labels for invocation metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Metrics holds the runtime collectors.
type Metrics struct {
	// Invocations counts program invocations by outcome.
	Invocations *prometheus.CounterVec

	// InvocationDuration observes how long each invocation took.
	InvocationDuration prometheus.Histogram

	// AccountsCommitted counts accounts written back after a successful
	// invocation.
	AccountsCommitted prometheus.Counter

	// RPCRequests counts JSON-RPC requests by method and outcome.
	RPCRequests *prometheus.CounterVec
}

// New creates the runtime metrics and registers them on reg. A nil reg
// creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "invocations_total",
			Help:      "Number of program invocations",
		}, []string{"outcome"}),
		InvocationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "invocation_duration_seconds",
			Help:      "Program invocation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		AccountsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "accounts_committed_total",
			Help:      "Number of accounts committed after successful invocations",
		}),
		RPCRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Number of JSON-RPC requests",
		}, []string{"method", "outcome"}),
	}
}

// ObserveInvocation records one invocation.
func (m *Metrics) ObserveInvocation(success bool, d time.Duration) {
	outcome := OutcomeFailed
	if success {
		outcome = OutcomeSuccess
	}
	m.Invocations.WithLabelValues(outcome).Inc()
	m.InvocationDuration.Observe(d.Seconds())
}

// ObserveRPC records one JSON-RPC request.
func (m *Metrics) ObserveRPC(method string, success bool) {
	outcome := OutcomeFailed
	if success {
		outcome = OutcomeSuccess
	}
	m.RPCRequests.WithLabelValues(method, outcome).Inc()
}
