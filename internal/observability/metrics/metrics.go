package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics exposes counters/histograms for campaign dispatch runs.
type DispatchMetrics struct {
	sendsTotal  *prometheus.CounterVec
	matchTotal  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgen",
			Subsystem: "dispatch",
			Name:      "sends_total",
			Help:      "Outbound sends by channel and result",
		}, []string{"channel", "status", "mode"}),
		matchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgen",
			Subsystem: "dispatch",
			Name:      "matches_total",
			Help:      "Script to lead match results by tier",
		}, []string{"tier"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgen",
			Subsystem: "dispatch",
			Name:      "errors_total",
			Help:      "Dispatch errors by type",
		}, []string{"error_type"}),
		runLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadgen",
			Subsystem: "dispatch",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a dispatch run including pacing",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sendsTotal, m.matchTotal, m.errorsTotal, m.runLatency)
	return m
}

func (m *DispatchMetrics) ObserveSend(channel, status string, simulated bool) {
	if m == nil {
		return
	}
	mode := "live"
	if simulated {
		mode = "simulated"
	}
	m.sendsTotal.WithLabelValues(channel, status, mode).Inc()
}

func (m *DispatchMetrics) ObserveMatch(tier string) {
	if m == nil {
		return
	}
	m.matchTotal.WithLabelValues(tier).Inc()
}

func (m *DispatchMetrics) ObserveError(errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(errorType).Inc()
}

func (m *DispatchMetrics) ObserveRun(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.runLatency.WithLabelValues(channel).Observe(seconds)
}

// TriageMetrics counts inbound classification and follow-ups.
type TriageMetrics struct {
	classifiedTotal *prometheus.CounterVec
	followUpsTotal  *prometheus.CounterVec
}

func NewTriageMetrics(reg prometheus.Registerer) *TriageMetrics {
	m := &TriageMetrics{
		classifiedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgen",
			Subsystem: "triage",
			Name:      "classified_total",
			Help:      "Inbound messages by detected intent",
		}, []string{"intent"}),
		followUpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgen",
			Subsystem: "triage",
			Name:      "follow_ups_total",
			Help:      "Follow-up sends for positive replies",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.classifiedTotal, m.followUpsTotal)
	return m
}

func (m *TriageMetrics) ObserveClassified(intent string) {
	if m == nil {
		return
	}
	m.classifiedTotal.WithLabelValues(intent).Inc()
}

func (m *TriageMetrics) ObserveFollowUp(status string) {
	if m == nil {
		return
	}
	m.followUpsTotal.WithLabelValues(status).Inc()
}
