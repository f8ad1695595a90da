// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package api serves the local control surface of the shuffle engine.

Endpoints:

	GET  /api/v1/health          liveness, version and uptime
	GET  /api/v1/status          engine status, job slots, UI state
	POST /api/v1/commands/{kind} queue a listener command
	GET  /metrics                Prometheus scrape endpoint

Commands are queued on the engine's event channel and answered with 202
Accepted; their outcome shows up in the status and in notifications.
Command names are those of shuffle.ParseCommandKind, for example
"toggle_library" or "next".

Every JSON response uses one envelope:

	{"status": "success", "data": {...}, "meta": {...}}
	{"status": "error", "error": {"code": "...", "message": "..."}, "meta": {...}}

UIState is also the engine's shuffle.UI. Confirmation prompts cannot be
shown over HTTP, so they are answered from the auto_confirm setting and
recorded as notifications.
*/
package api
