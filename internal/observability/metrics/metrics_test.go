package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDispatchMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)
	m.ObserveSend("whatsapp", "sent", false)
	m.ObserveSend("whatsapp", "sent", false)
	m.ObserveSend("email", "sent", true)
	m.ObserveMatch("fuzzy name")
	m.ObserveError("NO_MATCH")
	m.ObserveRun("whatsapp", 1.5)

	if got := testutil.ToFloat64(m.sendsTotal.WithLabelValues("whatsapp", "sent", "live")); got != 2 {
		t.Fatalf("expected 2 live whatsapp sends, got %v", got)
	}
	if got := testutil.ToFloat64(m.sendsTotal.WithLabelValues("email", "sent", "simulated")); got != 1 {
		t.Fatalf("expected 1 simulated email send, got %v", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("NO_MATCH")); got != 1 {
		t.Fatalf("expected 1 NO_MATCH error, got %v", got)
	}
}

func TestTriageMetricsObserve(t *testing.T) {
	m := NewTriageMetrics(prometheus.NewRegistry())
	m.ObserveClassified("positive")
	m.ObserveFollowUp("sent")
	if got := testutil.ToFloat64(m.classifiedTotal.WithLabelValues("positive")); got != 1 {
		t.Fatalf("expected 1 positive, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var d *DispatchMetrics
	d.ObserveSend("email", "failed", false)
	d.ObserveMatch("phone fallback")
	d.ObserveError("PROVIDER_ERROR")
	d.ObserveRun("all", 0.1)

	var tm *TriageMetrics
	tm.ObserveClassified("neutral")
	tm.ObserveFollowUp("failed")
}
