// Package metrics exposes prometheus instruments for webhook reconciliation
// and the usage-reset sweeper.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeApplied   = "applied"
	OutcomeSkipped   = "skipped"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Metrics captures billing reconciliation health signals.
type Metrics struct {
	webhookEvents *prometheus.CounterVec
	usageResets   *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobErrors     *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// Default returns the singleton metrics registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

// ResetForTest resets the metrics singleton for tests.
func ResetForTest() {
	metricsOnce = sync.Once{}
	metrics = nil
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postpulse_webhook_events_total",
		Help: "Payment webhook events by type and reconciliation outcome.",
	}, []string{"event_type", "outcome"})
	usageResets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postpulse_usage_resets_total",
		Help: "Monthly usage resets by outcome.",
	}, []string{"outcome"})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postpulse_scheduler_job_runs_total",
		Help: "Scheduler job runs by name.",
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postpulse_scheduler_job_duration_seconds",
		Help:    "Scheduler job latency.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postpulse_scheduler_job_errors_total",
		Help: "Scheduler job failures by name.",
	}, []string{"job"})

	for _, collector := range []prometheus.Collector{webhookEvents, usageResets, jobRuns, jobDuration, jobErrors} {
		if err := registerer.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				_ = already
				continue
			}
		}
	}

	return &Metrics{
		webhookEvents: webhookEvents,
		usageResets:   usageResets,
		jobRuns:       jobRuns,
		jobDuration:   jobDuration,
		jobErrors:     jobErrors,
	}
}

func (m *Metrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) IncUsageReset(outcome string) {
	if m == nil {
		return
	}
	m.usageResets.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}
