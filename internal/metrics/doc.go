// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
are exposed by the control API at /metrics:

	curl http://127.0.0.1:7780/metrics

# Available Metrics

Coordinate Store:
  - soundmap_store_tracks, soundmap_store_pending_tracks,
    soundmap_store_indexed_tracks: store sizes (gauges)
  - soundmap_nearest_query_duration_seconds: k-NN query latency (histogram)
  - soundmap_index_rebuild_duration_seconds: kd-tree rebuild time (histogram)

Resolution:
  - soundmap_resolution_batches_total: batch requests (counter)
    Labels: result
  - soundmap_resolution_batch_duration_seconds: batch latency including retries
  - soundmap_resolved_tracks_total: applied resolutions (counter)
    Labels: status
  - soundmap_protocol_parse_errors_total: malformed response records (counter)
  - soundmap_resolution_cache_lookups_total: cache lookups (counter)
    Labels: result (hit, miss)
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_state_transitions_total: breaker around the service

Background Jobs:
  - soundmap_job_runs_total: runs (counter)
    Labels: job, result (success, error, panic)
  - soundmap_job_duration_seconds: run time (histogram)
    Labels: job
  - soundmap_jobs_running: slot busy flag (gauge)

Shuffle Engine:
  - soundmap_engine_events_total: host events (counter)
    Labels: kind
  - soundmap_candidate_selections_total: enqueued continuations (counter)
    Labels: source (local, remote)
  - soundmap_candidate_fallbacks_total: random picks (counter)
    Labels: reason
  - soundmap_remote_radius: current discovery radius (gauge)

Control API:
  - http_requests_total, http_request_duration_seconds

# Thread Safety

All recorders are safe for concurrent use.
*/
package metrics
