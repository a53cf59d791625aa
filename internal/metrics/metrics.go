// Package metrics holds the Prometheus collectors exported on the admin
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "excelinsights_uploads_total",
			Help: "Total number of uploaded files by outcome",
		},
		[]string{"file_type", "status"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "excelinsights_queries_total",
			Help: "Total number of answered questions by answer source",
		},
		[]string{"source"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "excelinsights_llm_request_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"operation", "status"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "excelinsights_llm_tokens_total",
			Help: "Language model tokens consumed by provider and kind",
		},
		[]string{"provider", "kind"},
	)

	IndexedChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "excelinsights_indexed_chunks",
			Help:    "Number of chunks embedded per index build",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "excelinsights_active_sessions",
			Help: "Number of live upload sessions",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "excelinsights_http_request_duration_seconds",
			Help: "Duration of HTTP API requests in seconds",
		},
		[]string{"method", "route", "status"},
	)
)
