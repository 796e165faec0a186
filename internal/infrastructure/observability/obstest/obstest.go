// Package obstest builds a fully wired Observability for tests: an observed zap core
// and a private Prometheus registry that can be queried by metric name and labels.
package obstest

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	infraobs "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

type Harness struct {
	Obs      observability.Observability
	Registry *prometheus.Registry
	Logs     *observer.ObservedLogs
}

func New(t testing.TB) *Harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Instruments(prometrics.New(reg, "", ""))
	return &Harness{
		Obs:      infraobs.New(oteltrace.New("test"), zaplogger.Wrap(zap.New(core)), counters, histograms),
		Registry: reg,
		Logs:     logs,
	}
}

// Counter sums every series of the named counter whose labels include want.
func (h *Harness) Counter(t testing.TB, name string, want map[string]string) float64 {
	t.Helper()
	var total float64
	for _, m := range h.series(t, name) {
		if matches(m, want) && m.GetCounter() != nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// HistogramCount returns how many observations the named histogram recorded for want.
func (h *Harness) HistogramCount(t testing.TB, name string, want map[string]string) uint64 {
	t.Helper()
	var total uint64
	for _, m := range h.series(t, name) {
		if matches(m, want) && m.GetHistogram() != nil {
			total += m.GetHistogram().GetSampleCount()
		}
	}
	return total
}

func (h *Harness) series(t testing.TB, name string) []*dto.Metric {
	t.Helper()
	families, err := h.Registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()
		}
	}
	return nil
}

func matches(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
