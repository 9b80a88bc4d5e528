package metrics

import "github.com/prometheus/client_golang/prometheus"

// Provider (embedding + generation) Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Name:      "provider_requests_total",
			Help:      "Total number of embedding/generation requests",
		},
		[]string{"operation", "model", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "askdoc",
			Name:      "provider_request_duration_seconds",
			Help:      "Embedding/generation request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "model"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Name:      "provider_tokens_total",
			Help:      "Total provider tokens consumed",
		},
		[]string{"operation", "model", "type"},
	)

	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Name:      "provider_errors_total",
			Help:      "Total provider errors",
		},
		[]string{"operation", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdoc",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IndexedDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "askdoc",
			Name:      "indexed_documents",
			Help:      "Number of documents currently in the vector index",
		},
	)
)

var providerMetricsRegistered bool

// RegisterProviderMetrics registers provider metrics. Must be called once from main.
func RegisterProviderMetrics() {
	if providerMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderTokensTotal)
	prometheus.MustRegister(ProviderErrorsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(IndexedDocuments)
	providerMetricsRegistered = true
}
