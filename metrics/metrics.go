// Package metrics holds the Prometheus collectors of the protection engine.
// A nil *Recorder is valid and records nothing, so components can be built without metrics in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "edgeguard"

// Recorder owns the engine's collectors and the registry they are exposed through.
type Recorder struct {
	registry *prometheus.Registry

	decisionsTotal        *prometheus.CounterVec
	storeFailuresTotal    *prometheus.CounterVec
	attackLogFailures     prometheus.Counter
	attackJournalDrops    prometheus.Counter
	analyticsScanDuration *prometheus.HistogramVec
	analyticsCacheTotal   *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry that also carries the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Protection decisions by action and attack type",
			},
			[]string{"action", "attack_type"},
		),
		storeFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_failures_total",
				Help:      "Failed key-value store operations",
			},
			[]string{"op"},
		),
		attackLogFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attack_log_write_failures_total",
				Help:      "Attack log entries that could not be persisted",
			},
		),
		attackJournalDrops: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attack_journal_dropped_total",
				Help:      "Attack journal lines dropped because the write queue was full",
			},
		),
		analyticsScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analytics_scan_duration_seconds",
				Help:      "Duration of analytics store scans",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"view"},
		),
		analyticsCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_cache_requests_total",
				Help:      "Analytics cache lookups by view and result",
			},
			[]string{"view", "result"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.decisionsTotal,
		r.storeFailuresTotal,
		r.attackLogFailures,
		r.attackJournalDrops,
		r.analyticsScanDuration,
		r.analyticsCacheTotal,
	)

	return r
}

// Registry returns the registry to expose on a /metrics endpoint.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Decision counts one protection decision.
func (r *Recorder) Decision(action string, attackType string) {
	if r == nil {
		return
	}
	if attackType == "" {
		attackType = "none"
	}
	r.decisionsTotal.WithLabelValues(action, attackType).Inc()
}

// StoreFailure counts one failed store operation.
func (r *Recorder) StoreFailure(op string) {
	if r == nil {
		return
	}
	r.storeFailuresTotal.WithLabelValues(op).Inc()
}

// AttackLogFailure counts one attack log write that was dropped.
func (r *Recorder) AttackLogFailure() {
	if r == nil {
		return
	}
	r.attackLogFailures.Inc()
}

// AttackJournalDrop counts one journal line dropped on a full queue.
func (r *Recorder) AttackJournalDrop() {
	if r == nil {
		return
	}
	r.attackJournalDrops.Inc()
}

// AnalyticsScan observes the duration of one analytics view recomputation.
func (r *Recorder) AnalyticsScan(view string, d time.Duration) {
	if r == nil {
		return
	}
	r.analyticsScanDuration.WithLabelValues(view).Observe(d.Seconds())
}

// AnalyticsCache counts a cache hit or miss for a view.
func (r *Recorder) AnalyticsCache(view string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.analyticsCacheTotal.WithLabelValues(view, result).Inc()
}
