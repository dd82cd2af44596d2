package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	QueryValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlmongo",
			Name:      "query_validations_total",
			Help:      "Total number of query safety validations",
		},
		[]string{"outcome", "category"}, // outcome: "accepted" / "rejected"
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlmongo",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM translation requests",
		},
		[]string{"provider", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlmongo",
			Name:      "llm_request_duration_seconds",
			Help:      "LLM translation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlmongo",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	TranslationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlmongo",
			Name:      "translation_cache_total",
			Help:      "Translation cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nlmongo",
			Name:      "inference_duration_seconds",
			Help:      "Relationship inference pass duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	RelationshipsDetected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nlmongo",
			Name:      "relationships_detected",
			Help:      "Relationships found by the most recent inference pass",
		},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers Prometheus query metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryValidationsTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(TranslationCacheTotal)
	prometheus.MustRegister(InferenceDuration)
	prometheus.MustRegister(RelationshipsDetected)
	queryMetricsRegistered = true
}
