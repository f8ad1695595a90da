// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package middleware provides HTTP middleware for the control API.

Key Components:

  - RequestID: takes X-Request-ID from the client or generates a UUID, echoes
    it in the response and stores it in the request context for logging
  - PrometheusMetrics: counts requests and observes latency per route

Both use the net/http HandlerFunc shape; the api package adapts them for
chi's r.Use.

Metrics are labelled with the chi route pattern (for example
"/api/v1/commands/{kind}") rather than the raw path, so command names do
not multiply label values.
*/
package middleware
