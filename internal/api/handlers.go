// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/soundmap/internal/jobs"
	"github.com/tomtom215/soundmap/internal/logging"
	"github.com/tomtom215/soundmap/internal/shuffle"
	"github.com/tomtom215/soundmap/internal/validation"
)

// commandQueueTimeout bounds how long a command waits for the event loop.
const commandQueueTimeout = 2 * time.Second

// EngineStatus is the engine view the handlers need.
type EngineStatus interface {
	Status() shuffle.Status
}

// JobStatus reports whether a job slot is busy.
type JobStatus interface {
	Running(k jobs.Kind) bool
}

// Handler serves the control endpoints.
type Handler struct {
	engine    EngineStatus
	jobs      JobStatus
	ui        *UIState
	events    chan<- shuffle.Event
	version   string
	startTime time.Time
}

// NewHandler creates the handler. Commands are sent on events, the same
// channel the engine's event loop reads.
func NewHandler(engine EngineStatus, jobStatus JobStatus, ui *UIState, events chan<- shuffle.Event, version string) *Handler {
	return &Handler{
		engine:    engine,
		jobs:      jobStatus,
		ui:        ui,
		events:    events,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the health payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Mode          string  `json:"mode"`
}

// StatusResponse is the status payload.
type StatusResponse struct {
	Engine shuffle.Status  `json:"engine"`
	Jobs   map[string]bool `json:"jobs"`
	UI     UIView          `json:"ui"`
}

// CommandRequest is a validated command invocation.
type CommandRequest struct {
	Kind string `json:"kind" validate:"required,command"`
}

// CommandResponse acknowledges a queued command.
type CommandResponse struct {
	Command string `json:"command"`
	Queued  bool   `json:"queued"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Mode:          h.engine.Status().Mode,
	})
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	running := make(map[string]bool, 3)
	for _, k := range []jobs.Kind{jobs.LoadMap, jobs.ScanLibrary, jobs.PrepareNextTrack} {
		running[k.String()] = h.jobs.Running(k)
	}
	NewResponseWriter(w, r).Success(StatusResponse{
		Engine: h.engine.Status(),
		Jobs:   running,
		UI:     h.ui.View(),
	})
}

// Command handles POST /api/v1/commands/{kind}.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := CommandRequest{Kind: chi.URLParam(r, "kind")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError("invalid command", verr.ToAPIError().Fields)
		return
	}
	kind, err := shuffle.ParseCommandKind(req.Kind)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	if !h.ui.ControlsEnabled() {
		rw.Conflict("shuffle controls are disabled while the library is loading")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandQueueTimeout)
	defer cancel()

	select {
	case h.events <- shuffle.CommandInvoked{Command: kind}:
	case <-ctx.Done():
		logging.Ctx(r.Context()).Warn().Str("command", kind.String()).Msg("Event loop did not accept command")
		rw.ServiceUnavailable("event loop is busy")
		return
	}

	logging.Ctx(r.Context()).Info().Str("command", kind.String()).Msg("Command queued")
	rw.Accepted(CommandResponse{Command: kind.String(), Queued: true})
}
