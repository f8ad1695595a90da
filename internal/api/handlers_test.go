// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/jobs"
	"github.com/tomtom215/soundmap/internal/shuffle"
)

type fakeEngine struct {
	mu     sync.Mutex
	status shuffle.Status
}

func (f *fakeEngine) Status() shuffle.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

type fakeJobs map[jobs.Kind]bool

func (f fakeJobs) Running(k jobs.Kind) bool { return f[k] }

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *APIError       `json:"error"`
	Meta   *APIMeta        `json:"meta"`
}

func setupRouter(t *testing.T, events chan shuffle.Event, controls bool) (http.Handler, *UIState) {
	t.Helper()
	ui := NewUIState(false, zerolog.Nop())
	ui.SetControlsEnabled(controls)
	engine := &fakeEngine{status: shuffle.Status{Mode: "library", RemoteRadius: 0.3}}
	h := NewHandler(engine, fakeJobs{jobs.ScanLibrary: true}, ui, events, "test")
	return NewRouter(h), ui
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, rawResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp rawResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, make(chan shuffle.Event, 1), true)

	rec, resp := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if resp.Status != StatusSuccess {
		t.Errorf("Expected status %q, got %q", StatusSuccess, resp.Status)
	}
	var health HealthResponse
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if health.Status != "ok" || health.Version != "test" || health.Mode != "library" {
		t.Errorf("unexpected health payload: %+v", health)
	}
	if resp.Meta == nil || resp.Meta.RequestID == "" {
		t.Error("Expected meta with a request id")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected security headers on API responses")
	}
}

func TestStatus(t *testing.T) {
	router, ui := setupRouter(t, make(chan shuffle.Event, 1), true)
	ui.Notify(context.Background(), "Scan complete", "ready")

	rec, resp := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var st StatusResponse
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if st.Engine.Mode != "library" || st.Engine.RemoteRadius != 0.3 {
		t.Errorf("unexpected engine status: %+v", st.Engine)
	}
	if !st.Jobs["scan_library"] || st.Jobs["load_map"] {
		t.Errorf("unexpected jobs: %v", st.Jobs)
	}
	if len(st.Jobs) != 3 {
		t.Errorf("Expected 3 job slots, got %d", len(st.Jobs))
	}
	if !st.UI.ControlsEnabled || len(st.UI.Notifications) != 1 {
		t.Errorf("unexpected ui view: %+v", st.UI)
	}
}

func TestCommand(t *testing.T) {
	t.Run("queues a valid command", func(t *testing.T) {
		events := make(chan shuffle.Event, 1)
		router, _ := setupRouter(t, events, true)

		rec, resp := do(t, router, httptest.NewRequest(http.MethodPost, "/api/v1/commands/toggle-library", nil))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
		}
		var cr CommandResponse
		if err := json.Unmarshal(resp.Data, &cr); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if cr.Command != "toggle_library" || !cr.Queued {
			t.Errorf("unexpected command response: %+v", cr)
		}

		select {
		case ev := <-events:
			ci, ok := ev.(shuffle.CommandInvoked)
			if !ok || ci.Command != shuffle.ToggleLibrary {
				t.Errorf("unexpected event %#v", ev)
			}
		default:
			t.Fatal("Expected a queued event")
		}
	})

	t.Run("rejects an unknown command", func(t *testing.T) {
		events := make(chan shuffle.Event, 1)
		router, _ := setupRouter(t, events, true)

		rec, resp := do(t, router, httptest.NewRequest(http.MethodPost, "/api/v1/commands/dance", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected status 400, got %d", rec.Code)
		}
		if resp.Status != StatusError || resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
			t.Errorf("unexpected error envelope: %+v", resp)
		}
		if len(events) != 0 {
			t.Error("Expected no queued event")
		}
	})

	t.Run("refuses while controls are disabled", func(t *testing.T) {
		events := make(chan shuffle.Event, 1)
		router, _ := setupRouter(t, events, false)

		rec, resp := do(t, router, httptest.NewRequest(http.MethodPost, "/api/v1/commands/next", nil))
		if rec.Code != http.StatusConflict {
			t.Fatalf("Expected status 409, got %d", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeConflict {
			t.Errorf("unexpected error envelope: %+v", resp)
		}
	})

	t.Run("reports a busy event loop", func(t *testing.T) {
		router, _ := setupRouter(t, make(chan shuffle.Event), true)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/commands/next", nil).WithContext(ctx)

		rec, _ := do(t, router, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected status 503, got %d", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		router, _ := setupRouter(t, make(chan shuffle.Event, 1), true)

		rec, resp := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/commands/next", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("Expected status 405, got %d", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeMethodNotAllowed {
			t.Errorf("unexpected error envelope: %+v", resp)
		}
	})
}

func TestNotFound(t *testing.T) {
	router, _ := setupRouter(t, make(chan shuffle.Event, 1), true)

	rec, resp := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("unexpected error envelope: %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, make(chan shuffle.Event, 1), true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "soundmap_") {
		t.Error("Expected soundmap metrics in scrape output")
	}
}
