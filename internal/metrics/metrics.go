// Package metrics holds the Prometheus collectors for syncing and search.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dryad"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	syncPasses      *prometheus.CounterVec
	filesIndexed    prometheus.Counter
	filesReclaimed  prometheus.Counter
	searchRequests  prometheus.Counter
	joinMisses      prometheus.Counter
	errors          *prometheus.CounterVec
	summarizeTiming prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_invocations_total",
			Help:      "Sync invocations by the phase they ended in.",
		}, []string{"phase"}),
		filesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_indexed_total",
			Help:      "Files summarized, embedded and stored.",
		}),
		filesReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_reclaimed_total",
			Help:      "Dead files removed from the index.",
		}),
		searchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search queries served.",
		}),
		joinMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_join_misses_total",
			Help:      "Vector hits whose goal or file no longer exists.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"kind"}),
		summarizeTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summarize_duration_seconds",
			Help:      "Latency of file summarization calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}

	reg.MustRegister(
		m.syncPasses,
		m.filesIndexed,
		m.filesReclaimed,
		m.searchRequests,
		m.joinMisses,
		m.errors,
		m.summarizeTiming,
	)
	return m
}

// SyncInvocation counts one finished sync invocation.
func (m *Metrics) SyncInvocation(phase string) {
	if m == nil {
		return
	}
	m.syncPasses.WithLabelValues(phase).Inc()
}

// FilesIndexed adds n indexed files.
func (m *Metrics) FilesIndexed(n int) {
	if m == nil {
		return
	}
	m.filesIndexed.Add(float64(n))
}

// FilesReclaimed adds n reclaimed files.
func (m *Metrics) FilesReclaimed(n int) {
	if m == nil {
		return
	}
	m.filesReclaimed.Add(float64(n))
}

// SearchRequest counts one search.
func (m *Metrics) SearchRequest() {
	if m == nil {
		return
	}
	m.searchRequests.Inc()
}

// JoinMiss counts one skipped search hit.
func (m *Metrics) JoinMiss() {
	if m == nil {
		return
	}
	m.joinMisses.Inc()
}

// Error counts one error of the given kind (upstream, malformed, store, ...).
func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

// ObserveSummarize records the duration of a summarize call started at start.
func (m *Metrics) ObserveSummarize(start time.Time) {
	if m == nil {
		return
	}
	m.summarizeTiming.Observe(time.Since(start).Seconds())
}
