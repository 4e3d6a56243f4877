// Package metrics declares the Prometheus instruments shared across domains.
// Everything registers on the default registry and is exposed via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Embedding provider metrics
	EmbedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engram_embed_requests_total",
		Help: "Embedding requests per provider and outcome",
	}, []string{"provider", "status"})

	EmbedFailovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engram_embed_failovers_total",
		Help: "Times the primary embedding provider failed and a fallback served the request",
	})

	EmbedLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engram_embed_latency_seconds",
		Help:    "Embedding request latency per provider",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// Pipeline metrics
	PipelineRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engram_pipeline_runs_total",
		Help: "Embedding pipeline runs started",
	})

	PipelineProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engram_pipeline_observations_processed_total",
		Help: "Observations embedded by the pipeline",
	})

	PipelineErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engram_pipeline_errors_total",
		Help: "Observations the pipeline failed to embed",
	})

	PipelineSplits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engram_pipeline_splits_total",
		Help: "Oversized observations split into chunks and archived",
	})

	PipelineRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "engram_pipeline_run_duration_seconds",
		Help:    "Wall-clock duration of a pipeline run",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})

	// Search metrics
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engram_search_requests_total",
		Help: "Similarity search requests per outcome",
	}, []string{"status"})

	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "engram_search_latency_seconds",
		Help:    "End-to-end similarity search latency including query embedding",
		Buckets: prometheus.DefBuckets,
	})
)
