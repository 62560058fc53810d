package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks implements every hook interface on Prometheus collectors.
type PrometheusHooks struct {
	StageDuration *prometheus.HistogramVec
	StageItems    *prometheus.GaugeVec
	StageErrors   *prometheus.CounterVec

	BuildQueries       *prometheus.CounterVec
	BuildQueryDuration *prometheus.HistogramVec
	ProblemsByKind     *prometheus.GaugeVec

	CacheRequests *prometheus.CounterVec
	CacheBytes    *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPErrors   *prometheus.CounterVec
}

// NewPrometheusHooks creates the collectors and registers them on registry.
func NewPrometheusHooks(registry prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pkgcheck_stage_duration_seconds",
				Help:    "Audit stage duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		StageItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pkgcheck_stage_items",
				Help: "Items produced by the last run of an audit stage",
			},
			[]string{"stage"},
		),
		StageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgcheck_stage_errors_total",
				Help: "Total number of failed audit stages",
			},
			[]string{"stage"},
		),
		BuildQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgcheck_build_queries_total",
				Help: "Total number of build-tool queries",
			},
			[]string{"variable", "status"},
		),
		BuildQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pkgcheck_build_query_duration_seconds",
				Help:    "Build-tool query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"variable"},
		),
		ProblemsByKind: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pkgcheck_problems",
				Help: "Problems found by the last audit, by kind",
			},
			[]string{"kind"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgcheck_cache_requests_total",
				Help: "Total number of cache lookups",
			},
			[]string{"key_type", "result"},
		),
		CacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgcheck_cache_written_bytes_total",
				Help: "Total bytes written to the cache",
			},
			[]string{"key_type"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgcheck_http_client_requests_total",
				Help: "Total number of outgoing HTTP requests",
			},
			[]string{"method", "host", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pkgcheck_http_client_duration_seconds",
				Help:    "Outgoing HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "host"},
		),
		HTTPErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgcheck_http_client_errors_total",
				Help: "Total number of failed outgoing HTTP requests",
			},
			[]string{"method", "host"},
		),
	}

	registry.MustRegister(
		h.StageDuration,
		h.StageItems,
		h.StageErrors,
		h.BuildQueries,
		h.BuildQueryDuration,
		h.ProblemsByKind,
		h.CacheRequests,
		h.CacheBytes,
		h.HTTPRequests,
		h.HTTPDuration,
		h.HTTPErrors,
	)
	return h
}

func (h *PrometheusHooks) OnStageStart(context.Context, string) {}

func (h *PrometheusHooks) OnStageComplete(_ context.Context, stage string, items int, d time.Duration, err error) {
	h.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	h.StageItems.WithLabelValues(stage).Set(float64(items))
	if err != nil {
		h.StageErrors.WithLabelValues(stage).Inc()
	}
}

func (h *PrometheusHooks) OnBuildQuery(_ context.Context, variable string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.BuildQueries.WithLabelValues(variable, status).Inc()
	h.BuildQueryDuration.WithLabelValues(variable).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnProblems(_ context.Context, kind string, count int) {
	h.ProblemsByKind.WithLabelValues(kind).Set(float64(count))
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	h.HTTPRequests.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	h.HTTPDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnError(_ context.Context, method, host, _ string, _ error) {
	h.HTTPErrors.WithLabelValues(method, host).Inc()
}

var (
	_ AuditHooks = (*PrometheusHooks)(nil)
	_ CacheHooks = (*PrometheusHooks)(nil)
	_ HTTPHooks  = (*PrometheusHooks)(nil)
)
