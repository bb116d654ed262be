package metrics

import (
	"net/http"
	"time"

	"ecommerce-dashboard/internal/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Queries       *prometheus.CounterVec
	QueryErrors   *prometheus.CounterVec
	QueryLatency  *prometheus.HistogramVec
	CacheHits     prometheus.Counter
	CacheBuilds   prometheus.Counter
	BuildSec      prometheus.Histogram
	EnrichedLines prometheus.Gauge
	DroppedItems  *prometheus.GaugeVec
	LastBuildUnix prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dashboard_queries_total"}, []string{"mode"})
	queryErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dashboard_query_errors_total"}, []string{"mode", "kind"})
	queryLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_query_latency_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_cache_hits_total"})
	cacheBuilds := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_cache_builds_total"})
	buildSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_cache_build_seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	lines := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dashboard_enriched_lines"})
	dropped := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "dashboard_dropped_items"}, []string{"reason"})
	lastBuild := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dashboard_last_build_timestamp_seconds"})

	r.MustRegister(queries, queryErrors, queryLatency, cacheHits, cacheBuilds, buildSec, lines, dropped, lastBuild)
	return &Registry{
		reg:           r,
		Queries:       queries,
		QueryErrors:   queryErrors,
		QueryLatency:  queryLatency,
		CacheHits:     cacheHits,
		CacheBuilds:   cacheBuilds,
		BuildSec:      buildSec,
		EnrichedLines: lines,
		DroppedItems:  dropped,
		LastBuildUnix: lastBuild,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// ObserveQuery records one dispatched request. kind is empty on success.
func (r *Registry) ObserveQuery(mode string, took time.Duration, kind string) {
	r.Queries.WithLabelValues(mode).Inc()
	r.QueryLatency.WithLabelValues(mode).Observe(took.Seconds())
	if kind != "" {
		r.QueryErrors.WithLabelValues(mode, kind).Inc()
	}
}

func (r *Registry) CacheHit() { r.CacheHits.Inc() }

func (r *Registry) CacheBuilt(s *cache.Snapshot, took time.Duration) {
	r.CacheBuilds.Inc()
	r.BuildSec.Observe(took.Seconds())
	r.EnrichedLines.Set(float64(s.Stats.Lines))
	r.DroppedItems.WithLabelValues("no_order").Set(float64(s.Stats.DroppedNoOrder))
	r.DroppedItems.WithLabelValues("no_product").Set(float64(s.Stats.DroppedNoProduct))
	r.DroppedItems.WithLabelValues("undelivered").Set(float64(s.Stats.DroppedUndelivered))
	r.LastBuildUnix.Set(float64(s.BuiltAt.Unix()))
}

var _ cache.Observer = (*Registry)(nil)
