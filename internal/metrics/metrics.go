// Package metrics provides Prometheus metrics for finduo.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface used by the domain store, the session
// engine and the payday scheduler.
type Recorder interface {
	RecordSyncFailure(partition string)
	RecordRowSkipped(partition string)
	RecordStoreLatency(op string, d time.Duration)
	RecordEvent(kind string)
	RecordValidationError(reason string)
	RecordCommit(recordType string)
	RecordCommitFailure()
	RecordReminder(kind string)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	syncFailures     *prometheus.CounterVec
	rowsSkipped      *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
	events           *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	commits          *prometheus.CounterVec
	commitFailures   prometheus.Counter
	reminders        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finduo_sync_failures_total",
			Help: "Domain store writes that could not be synchronized to the tabular store.",
		}, []string{"partition"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finduo_rows_skipped_total",
			Help: "Malformed rows skipped while loading a partition.",
		}, []string{"partition"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finduo_store_latency_seconds",
			Help:    "Latency of tabular store calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finduo_events_total",
			Help: "Inbound session events by kind.",
		}, []string{"kind"}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finduo_validation_errors_total",
			Help: "Rejected user inputs by reason.",
		}, []string{"reason"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finduo_commits_total",
			Help: "Ledger records committed by type.",
		}, []string{"type"}),
		commitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finduo_commit_failures_total",
			Help: "Ledger commits that failed.",
		}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finduo_reminders_total",
			Help: "Payday reminders dispatched by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.syncFailures,
		c.rowsSkipped,
		c.storeLatency,
		c.events,
		c.validationErrors,
		c.commits,
		c.commitFailures,
		c.reminders,
	)

	return c
}

func (c *Collector) RecordSyncFailure(partition string) {
	c.syncFailures.WithLabelValues(partition).Inc()
}

func (c *Collector) RecordRowSkipped(partition string) {
	c.rowsSkipped.WithLabelValues(partition).Inc()
}

func (c *Collector) RecordStoreLatency(op string, d time.Duration) {
	c.storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) RecordEvent(kind string) {
	c.events.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordValidationError(reason string) {
	c.validationErrors.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordCommit(recordType string) {
	c.commits.WithLabelValues(recordType).Inc()
}

func (c *Collector) RecordCommitFailure() {
	c.commitFailures.Inc()
}

func (c *Collector) RecordReminder(kind string) {
	c.reminders.WithLabelValues(kind).Inc()
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every metric. It is the default when no collector is configured.
type Nop struct{}

func (Nop) RecordSyncFailure(string)                  {}
func (Nop) RecordRowSkipped(string)                   {}
func (Nop) RecordStoreLatency(string, time.Duration) {}
func (Nop) RecordEvent(string)                        {}
func (Nop) RecordValidationError(string)              {}
func (Nop) RecordCommit(string)                       {}
func (Nop) RecordCommitFailure()                      {}
func (Nop) RecordReminder(string)                     {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
