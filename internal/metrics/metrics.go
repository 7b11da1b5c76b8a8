package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "contentsvc",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "provider_requests_total",
		Help:      "Total requests to content providers by provider, category and result status.",
	}, []string{"provider", "category", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "contentsvc",
		Name:      "provider_request_duration_seconds",
		Help:      "Content provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"provider", "category"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "contentsvc",
		Name:      "provider_available",
		Help:      "Whether a provider is available (1) or blocked by the health circuit (0), per category.",
	}, []string{"provider", "category"})

	DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "dispatch_total",
		Help:      "Category lookups by category, operation and path taken (live, fallback, mock, empty).",
	}, []string{"category", "operation", "path"})

	SessionCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "session_cache_hits_total",
		Help:      "Total number of per-session result cache hits.",
	})

	SessionCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "session_cache_misses_total",
		Help:      "Total number of per-session result cache misses.",
	})

	ProviderCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "provider_cache_hits_total",
		Help:      "Provider responses served from the shared response cache.",
	}, []string{"provider"})

	DiscoverItemsAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "discover_items_appended_total",
		Help:      "Items appended to discover feeds by category.",
	}, []string{"category"})

	AggregatedBranchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contentsvc",
		Name:      "aggregated_branch_failures_total",
		Help:      "Aggregated search branches that failed or timed out, by tab.",
	}, []string{"tab"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "contentsvc",
		Name:      "active_sessions",
		Help:      "Number of open screen sessions.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		DispatchTotal,
		SessionCacheHitsTotal,
		SessionCacheMissesTotal,
		ProviderCacheHitsTotal,
		DiscoverItemsAppended,
		AggregatedBranchFailures,
		ActiveSessions,
	)
}
