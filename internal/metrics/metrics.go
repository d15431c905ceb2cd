// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package metrics provides Prometheus metrics collection for observability.
//
// Metrics are registered with the default registry via promauto and exposed
// at the /metrics endpoint in Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "showdex_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Rate limiter metrics

	LimiterQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "showdex_limiter_queue_depth",
			Help: "Current number of requests waiting in the rate limiter queue",
		},
	)

	LimiterDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_limiter_dispatches_total",
			Help: "Requests dispatched by the rate limiter, by outcome (resolved, retried, failed, cancelled)",
		},
		[]string{"outcome"},
	)

	LimiterRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "showdex_limiter_retries_total",
			Help: "Total retry attempts caused by HTTP 429 or transport failures",
		},
	)

	// Sync metrics

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "showdex_sync_duration_seconds",
			Help:    "Duration of full sync cycles in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	SyncRecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "showdex_sync_records_total",
			Help: "Total show records fetched and stored by sync cycles",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_sync_errors_total",
			Help: "Failed sync cycles by error type",
		},
		[]string{"error_type"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "showdex_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync",
		},
	)

	// Store metrics

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_store_operations_total",
			Help: "Local store operations by type (get, upsert, bulk_upsert, delete, scan, index_query)",
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_store_errors_total",
			Help: "Failed local store operations by type",
		},
		[]string{"operation"},
	)

	StoreShowCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "showdex_store_shows",
			Help: "Number of show records currently persisted in the local store",
		},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "showdex_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_circuit_breaker_requests_total",
			Help: "Requests seen by the circuit breaker by outcome",
		},
		[]string{"name", "outcome"},
	)

	// Connectivity metrics

	NetworkOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "showdex_network_online",
			Help: "Current connectivity state (1=online, 0=offline)",
		},
	)

	NetworkTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showdex_network_transitions_total",
			Help: "Connectivity transitions by direction (online, offline)",
		},
		[]string{"direction"},
	)

	// WebSocket metrics

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "showdex_websocket_clients",
			Help: "Number of connected status stream clients",
		},
	)
)
