// Package metrics provides Prometheus-based metrics recording for the
// orchestration core: routing, interrupt lifecycle, and UI event delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records orchestration metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveTurn(domain, outcome string, duration time.Duration)
	IncDecision(kind, outcome string)
	SetPendingInterrupts(count int)
	IncInterruptExpired(count int)
	IncUIEvent(name string, delivered bool)
}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	turnsTotal        *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	decisionsTotal    *prometheus.CounterVec
	pendingInterrupts prometheus.Gauge
	expiredTotal      prometheus.Counter
	uiEventsTotal     *prometheus.CounterVec
}

// NewPrometheusRecorder creates a Prometheus-based metrics recorder. Metrics
// register against the default registry; create at most one per process.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		turnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_turns_total",
				Help: "Total number of routed turns by domain and outcome",
			},
			[]string{"domain", "outcome"},
		),
		turnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "concierge_turn_duration_seconds",
				Help:    "Duration of turn processing in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain", "outcome"},
		),
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_decisions_total",
				Help: "Total number of resume decisions by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		pendingInterrupts: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "concierge_interrupts_pending",
				Help: "Number of interrupts currently awaiting a decision",
			},
		),
		expiredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "concierge_interrupts_expired_total",
				Help: "Total number of interrupts abandoned by TTL expiry",
			},
		),
		uiEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_ui_events_total",
				Help: "Total number of UI events by name and delivery status",
			},
			[]string{"name", "status"},
		),
	}
}

// ObserveTurn records one completed turn.
func (p *PrometheusRecorder) ObserveTurn(domain, outcome string, duration time.Duration) {
	p.turnsTotal.WithLabelValues(domain, outcome).Inc()
	p.turnDuration.WithLabelValues(domain, outcome).Observe(duration.Seconds())
}

// IncDecision records one applied resume decision.
func (p *PrometheusRecorder) IncDecision(kind, outcome string) {
	p.decisionsTotal.WithLabelValues(kind, outcome).Inc()
}

// SetPendingInterrupts records the current pending interrupt count.
func (p *PrometheusRecorder) SetPendingInterrupts(count int) {
	p.pendingInterrupts.Set(float64(count))
}

// IncInterruptExpired records interrupts abandoned by the TTL sweeper.
func (p *PrometheusRecorder) IncInterruptExpired(count int) {
	p.expiredTotal.Add(float64(count))
}

// IncUIEvent records one UI event emission.
func (p *PrometheusRecorder) IncUIEvent(name string, delivered bool) {
	status := "delivered"
	if !delivered {
		status = "dropped"
	}
	p.uiEventsTotal.WithLabelValues(name, status).Inc()
}

// NopRecorder discards all metrics. Used in tests.
type NopRecorder struct{}

func (NopRecorder) ObserveTurn(string, string, time.Duration) {}
func (NopRecorder) IncDecision(string, string)                {}
func (NopRecorder) SetPendingInterrupts(int)                  {}
func (NopRecorder) IncInterruptExpired(int)                   {}
func (NopRecorder) IncUIEvent(string, bool)                   {}
