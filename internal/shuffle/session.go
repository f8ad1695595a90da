// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/track"
)

// Mode is the shuffle mode.
type Mode int

const (
	ModeOff Mode = iota
	ModeLibrary
	ModePlaylist
)

func (m Mode) String() string {
	switch m {
	case ModeLibrary:
		return "library"
	case ModePlaylist:
		return "playlist"
	default:
		return "off"
	}
}

// session is the state of one activation, from toggle-on to toggle-off.
// Fields are guarded by Engine.mu; rng is guarded by rngMu since the
// prepare job draws from it concurrently.
type session struct {
	id     string
	mode   Mode
	logger zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	playing track.ID
	local   track.ID
	remote  track.ID
	radius  float64
	history history

	position int
	length   int

	paused      bool
	started     time.Time
	ended       time.Time
	pauseStart  time.Time
	pauseEnd    time.Time
	pausedTotal time.Duration
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newSession(mode Mode, seed int64, logger zerolog.Logger) *session {
	id := uuid.New().String()
	return &session{
		id:      id,
		mode:    mode,
		logger:  logger.With().Str("session_id", id).Logger(),
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // shuffle order, not security
		playing: track.NoID,
		local:   track.NoID,
		remote:  track.NoID,
	}
}

// resetTimers clears the listening measurement.
func (s *session) resetTimers() {
	s.paused = false
	s.started = time.Time{}
	s.ended = time.Time{}
	s.pauseStart = time.Time{}
	s.pauseEnd = time.Time{}
	s.pausedTotal = 0
}

// listened returns how long the current track was actually heard. ok is
// false when nothing was measured since the last manual navigation. A
// paused duration longer than the played one is a stale measurement and
// is discarded.
func (s *session) listened(now time.Time) (d time.Duration, ok bool) {
	if s.started.IsZero() {
		return 0, false
	}
	end := s.ended
	if end.IsZero() || end.Before(s.started) {
		end = now
	}
	played := end.Sub(s.started)

	paused := s.pausedTotal
	if s.paused && !s.pauseStart.IsZero() && end.After(s.pauseStart) {
		paused += end.Sub(s.pauseStart)
	}
	if paused > played {
		s.pauseStart, s.pauseEnd, s.pausedTotal = time.Time{}, time.Time{}, 0
		paused = 0
	}
	return played - paused, true
}

func (s *session) atLastSlot() bool {
	return s.position == s.length-1
}

func (s *session) randomID(store *coordstore.Store) (track.ID, bool) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return store.RandomID(s.rng)
}

func (s *session) randomUnplayedID(store *coordstore.Store) (track.ID, bool) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return store.RandomUnplayedID(s.rng)
}

func (s *session) randomDirection(dims int) []float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return RandomDirection(s.rng, dims)
}

// TrackRef identifies a track in a status snapshot.
type TrackRef struct {
	ID     track.ID `json:"id"`
	Path   string   `json:"path"`
	Artist string   `json:"artist,omitempty"`
	Title  string   `json:"title,omitempty"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	Mode             string           `json:"mode"`
	SessionID        string           `json:"session_id,omitempty"`
	ControlsEnabled  bool             `json:"controls_enabled"`
	PlaylistMode     bool             `json:"playlist_mode_available"`
	Playing          *TrackRef        `json:"playing,omitempty"`
	LocalCandidate   *TrackRef        `json:"local_candidate,omitempty"`
	RemoteCandidate  *TrackRef        `json:"remote_candidate,omitempty"`
	RemoteRadius     float64          `json:"remote_radius"`
	History          int              `json:"history"`
	HistoryCapacity  int              `json:"history_capacity"`
	Paused           bool             `json:"paused"`
	PlaylistPosition int              `json:"playlist_position"`
	PlaylistLength   int              `json:"playlist_length"`
	Store            coordstore.Stats `json:"store"`
}
