package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveInvocation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveInvocation(true, time.Millisecond)
	m.ObserveInvocation(false, time.Millisecond)
	m.ObserveInvocation(false, 2*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Invocations.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Invocations.WithLabelValues(OutcomeFailed)))

	count, err := testutil.GatherAndCount(reg, "stakepool_runtime_invocation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestNew_NilRegisterer(t *testing.T) {
	m := New(nil)
	m.AccountsCommitted.Add(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.AccountsCommitted))
}

func TestObserveRPC(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRPC("getHealth", true)
	m.ObserveRPC("getHealth", true)
	m.ObserveRPC("sendTransaction", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RPCRequests.WithLabelValues("getHealth", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RPCRequests.WithLabelValues("sendTransaction", OutcomeFailed)))
}
