package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveRequestIncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsCollector(reg)

	m.ObserveRequest("mask_and_allow", 50*time.Millisecond)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var sawCounter, sawHistogram bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "sentinel_requests_total":
			sawCounter = true
			assertSingleCounterValue(t, mf, 1)
		case "sentinel_request_duration_seconds":
			sawHistogram = true
		}
	}
	if !sawCounter {
		t.Error("expected sentinel_requests_total to be registered")
	}
	if !sawHistogram {
		t.Error("expected sentinel_request_duration_seconds to be registered")
	}
}

func TestObserveRequestNilReceiverIsNoOp(t *testing.T) {
	var m *MetricsCollector
	m.ObserveRequest("allow", time.Second) // must not panic
}

func assertSingleCounterValue(t *testing.T, mf *dto.MetricFamily, want float64) {
	t.Helper()
	if len(mf.Metric) != 1 {
		t.Fatalf("expected 1 metric series, got %d", len(mf.Metric))
	}
	got := mf.Metric[0].GetCounter().GetValue()
	if got != want {
		t.Errorf("counter value = %f, want %f", got, want)
	}
}
