// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Coordinate Store Metrics
	StoreTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundmap_store_tracks",
			Help: "Number of tracks in the coordinate store",
		},
	)

	StorePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundmap_store_pending_tracks",
			Help: "Number of tracks waiting for coordinate resolution",
		},
	)

	StoreIndexed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundmap_store_indexed_tracks",
			Help: "Number of tracks in the spatial index as of the last rebuild",
		},
	)

	NearestQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundmap_nearest_query_duration_seconds",
			Help:    "Duration of k-nearest-neighbor queries in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	IndexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundmap_index_rebuild_duration_seconds",
			Help:    "Duration of spatial index rebuilds in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// Resolution Protocol Metrics
	ResolutionBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmap_resolution_batches_total",
			Help: "Total number of resolution batch requests",
		},
		[]string{"result"}, // "success", "error"
	)

	ResolutionBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundmap_resolution_batch_duration_seconds",
			Help:    "Duration of resolution batch requests including retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	ResolvedTracks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmap_resolved_tracks_total",
			Help: "Total number of tracks resolved, by resolution status",
		},
		[]string{"status"},
	)

	ProtocolParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundmap_protocol_parse_errors_total",
			Help: "Total number of malformed resolution response records",
		},
	)

	ResolutionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmap_resolution_cache_lookups_total",
			Help: "Total number of resolution cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Background Job Metrics
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmap_job_runs_total",
			Help: "Total number of background job runs",
		},
		[]string{"job", "result"}, // result: "success", "error", "panic"
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundmap_job_duration_seconds",
			Help:    "Duration of background job runs in seconds",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 30, 120, 600},
		},
		[]string{"job"},
	)

	JobsRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soundmap_jobs_running",
			Help: "Whether a job slot currently has a run in flight (0 or 1)",
		},
		[]string{"job"},
	)

	// Shuffle Engine Metrics
	EngineEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmap_engine_events_total",
			Help: "Total number of host events handled by the shuffle engine",
		},
		[]string{"kind"},
	)

	CandidateSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmap_candidate_selections_total",
			Help: "Total number of continuation tracks enqueued, by candidate source",
		},
		[]string{"source"}, // "local", "remote"
	)

	CandidateFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmap_candidate_fallbacks_total",
			Help: "Total number of candidates chosen without a similarity match",
		},
		[]string{"reason"},
	)

	RemoteRadius = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundmap_remote_radius",
			Help: "Current discovery radius of the active shuffle session",
		},
	)

	// Control API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordNearestQuery records the duration of one nearest-neighbor query
func RecordNearestQuery(duration time.Duration) {
	NearestQueryDuration.Observe(duration.Seconds())
}

// RecordIndexRebuild records the duration of one spatial index rebuild
func RecordIndexRebuild(duration time.Duration) {
	IndexRebuildDuration.Observe(duration.Seconds())
}

// RecordResolutionBatch records one batch request
func RecordResolutionBatch(duration time.Duration, err error) {
	ResolutionBatchDuration.Observe(duration.Seconds())
	if err != nil {
		ResolutionBatches.WithLabelValues("error").Inc()
		return
	}
	ResolutionBatches.WithLabelValues("success").Inc()
}

// RecordResolvedTrack counts one applied resolution
func RecordResolvedTrack(status string) {
	ResolvedTracks.WithLabelValues(status).Inc()
}

// RecordCacheLookup counts a resolution cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		ResolutionCacheLookups.WithLabelValues("hit").Inc()
	} else {
		ResolutionCacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordJobRun records the outcome of one background job run
func RecordJobRun(job string, duration time.Duration, err error, panicked bool) {
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	switch {
	case panicked:
		JobRuns.WithLabelValues(job, "panic").Inc()
	case err != nil:
		JobRuns.WithLabelValues(job, "error").Inc()
	default:
		JobRuns.WithLabelValues(job, "success").Inc()
	}
}

// SetJobRunning flags a job slot as busy or idle
func SetJobRunning(job string, running bool) {
	if running {
		JobsRunning.WithLabelValues(job).Set(1)
	} else {
		JobsRunning.WithLabelValues(job).Set(0)
	}
}

// RecordEngineEvent counts one host event
func RecordEngineEvent(kind string) {
	EngineEvents.WithLabelValues(kind).Inc()
}

// RecordCandidateSelection counts one enqueued continuation
func RecordCandidateSelection(source string) {
	CandidateSelections.WithLabelValues(source).Inc()
}

// RecordCandidateFallback counts a candidate picked without a similarity match
func RecordCandidateFallback(reason string) {
	CandidateFallbacks.WithLabelValues(reason).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetAppInfo publishes build information
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}
