package prometrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

func TestCounterRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "minishop", "")

	first := r.Counter("order_events_total", "events", "event")
	second := r.Counter("order_events_total", "events", "event")
	first.Add(1, observability.L("event", "inventory.released"))
	second.Add(2, observability.L("event", "inventory.released"))

	n, err := testutil.GatherAndCount(reg, "minishop_order_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cv, ok := r.(*registry).counters.Load("order_events_total")
	require.True(t, ok)
	assert.Equal(t, 3.0, testutil.ToFloat64(cv.(*prometheus.CounterVec).WithLabelValues("inventory.released")))
}

func TestInstrumentsCoversDeclaredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := Instruments(New(reg, "minishop", ""))

	assert.Len(t, counters, len(observability.Counters))
	assert.Len(t, histograms, len(observability.Histograms))

	histograms[observability.MUsecaseDuration].Observe(0.2, observability.L("use_case", "order.place"))
	n, err := testutil.GatherAndCount(reg, "minishop_usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
