package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telcolog_ingestions_total",
			Help: "Total number of log ingestions by terminal status",
		},
		[]string{"status"},
	)

	IngestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telcolog_ingestion_duration_seconds",
			Help:    "End-to-end ingestion pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telcolog_searches_total",
			Help: "Total number of searches by mode (vector or keyword)",
		},
		[]string{"mode"},
	)

	EmbeddingFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telcolog_embedding_fallbacks_total",
			Help: "Embeddings served by the deterministic fallback generator",
		},
	)

	AnalysisFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telcolog_analysis_fallbacks_total",
			Help: "Analyses served by the heuristic fallback analyzer",
		},
	)

	VectorStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telcolog_vector_store_errors_total",
			Help: "Vector store operation failures by operation",
		},
		[]string{"operation"},
	)
)
