// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nlu_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlu_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// TrainingRunsTotal counts update requests by outcome.
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlu_training_runs_total",
			Help: "Application updates by outcome (skipped, succeeded, failed)",
		},
		[]string{"outcome"},
	)

	// TrainingDuration tracks Trainer wall time for runs that actually trained.
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nlu_training_duration_seconds",
			Help:    "Model training duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// CacheLookupsTotal counts model cache lookups by result (hit, miss).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlu_model_cache_lookups_total",
			Help: "Model cache lookups",
		},
		[]string{"result"},
	)

	// CacheLoadsTotal counts loads from persisted artifacts by result (ok, not_found, failed).
	CacheLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlu_model_cache_loads_total",
			Help: "Model loads from persisted artifacts",
		},
		[]string{"result"},
	)

	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nlu_model_cache_evictions_total",
			Help: "Model pairs evicted from the cache",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nlu_model_cache_entries",
			Help: "Model pairs resident in memory",
		},
	)
)
