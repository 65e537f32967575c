// Package metrics exposes pipeline instrumentation via
// prometheus/client_golang, replacing the reference service's hand-rolled
// pkg/metrics.Tracker with real counters and histograms registered
// against a dedicated registry and served on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the pipeline records.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	CircuitState     *prometheus.GaugeVec
	AnalysisDuration prometheus.Histogram
}

// New builds and registers every metric on a fresh registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urlsentinel",
			Name:      "requests_total",
			Help:      "Total scan requests, labeled by final status.",
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "urlsentinel",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urlsentinel",
			Name:      "cache_hits_total",
			Help:      "Scan requests served from cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urlsentinel",
			Name:      "cache_misses_total",
			Help:      "Scan requests not found in cache.",
		}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "urlsentinel",
			Name:      "circuit_breaker_state",
			Help:      "0=closed 1=half_open 2=open, labeled by external-call category.",
		}, []string{"category"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "urlsentinel",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end scan duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(r.RequestsTotal, r.StageDuration, r.CacheHits, r.CacheMisses, r.CircuitState, r.AnalysisDuration)
	return r
}

// Handler returns the HTTP handler serving this registry in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
