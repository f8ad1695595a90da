// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/jobs"
	"github.com/tomtom215/soundmap/internal/metrics"
	"github.com/tomtom215/soundmap/internal/track"
)

// Engine turns host events into next-track decisions.
//
// Handle is serialized: events are processed one at a time, whether they
// come from Run or from direct calls. The prepare job runs concurrently and
// only touches the session through snapshots taken under mu.
type Engine struct {
	cfg    Config
	store  *coordstore.Store
	runner *jobs.Runner
	player Player
	ui     UI
	maint  Maintainer
	clock  Clock
	logger zerolog.Logger

	handleMu sync.Mutex

	mu              sync.Mutex
	session         *session
	controlsEnabled bool
	playlistCapable bool

	// beforePrepare runs at the start of every prepare job. Tests use it to
	// slow the job down.
	beforePrepare func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMaintainer wires the rescan command.
func WithMaintainer(m Maintainer) Option {
	return func(e *Engine) { e.maint = m }
}

// New creates an engine with shuffle off and controls enabled.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, store *coordstore.Store, runner *jobs.Runner, player Player, ui UI, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shuffle config: %w", err)
	}
	if store == nil || runner == nil || player == nil || ui == nil {
		return nil, errors.New("shuffle engine requires a store, a job runner, a player and a ui")
	}

	e := &Engine{
		cfg:             cfg,
		store:           store,
		runner:          runner,
		player:          player,
		ui:              ui,
		clock:           systemClock{},
		logger:          logger.With().Str("component", "shuffle").Logger(),
		controlsEnabled: true,
		playlistCapable: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetMaintainer wires the rescan command after construction, for
// maintainers that themselves need the engine.
func (e *Engine) SetMaintainer(m Maintainer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maint = m
}

// CheckCapability compares the host version with MinPlaylistVersion. When
// the host is older, playlist mode is disabled and a wrapped ErrCapability
// is returned; library mode keeps working.
func (e *Engine) CheckCapability(ctx context.Context) error {
	if e.cfg.MinPlaylistVersion == "" {
		return nil
	}
	version, err := e.player.Version(ctx)
	if err != nil {
		return fmt.Errorf("query host version: %w", err)
	}

	capable := compareVersions(version, e.cfg.MinPlaylistVersion) >= 0
	e.mu.Lock()
	e.playlistCapable = capable
	e.mu.Unlock()

	if !capable {
		return fmt.Errorf("%w: playlist mode needs host %s, have %s", ErrCapability, e.cfg.MinPlaylistVersion, version)
	}
	e.logger.Debug().Str("host_version", version).Msg("Host capabilities checked")
	return nil
}

// compareVersions compares dotted versions such as "0.23.5".
func compareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// SetControlsEnabled is called by the map load and library scan jobs.
// Disabling the controls ends the active session, since the store is
// about to be rewritten.
func (e *Engine) SetControlsEnabled(enabled bool) {
	e.mu.Lock()
	e.controlsEnabled = enabled
	if !enabled && e.session != nil {
		e.endSessionLocked()
	}
	e.mu.Unlock()

	e.ui.SetControlsEnabled(enabled)
}

// Run handles events until ctx is done or events is closed. Handler errors
// are logged and do not stop the loop.
func (e *Engine) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.Handle(ctx, ev); err != nil {
				e.logger.Warn().Err(err).Str("event", ev.Kind()).Msg("Event handling failed")
			}
		}
	}
}

// Handle processes one event.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()

	metrics.RecordEngineEvent(ev.Kind())

	switch ev := ev.(type) {
	case TrackStarted:
		return e.onTrackStarted(ctx)
	case TrackStopped:
		return e.onTrackStopped(ctx, ev.EndOfTrack)
	case PlaybackStateChanged:
		e.onPlaybackState(ev.State)
		return nil
	case CommandInvoked:
		return e.onCommand(ctx, ev.Command)
	default:
		return fmt.Errorf("unknown event %T", ev)
	}
}

// Mode returns the current mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ModeOff
	}
	return e.session.mode
}

// Status returns a snapshot for the control surface.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Mode:            ModeOff.String(),
		ControlsEnabled: e.controlsEnabled,
		PlaylistMode:    e.playlistCapable,
		HistoryCapacity: historyCapacity(e.store.Len()),
		Store:           e.store.Stats(),
	}
	s := e.session
	if s == nil {
		return st
	}
	st.Mode = s.mode.String()
	st.SessionID = s.id
	st.Playing = e.trackRef(s.playing)
	st.LocalCandidate = e.trackRef(s.local)
	st.RemoteCandidate = e.trackRef(s.remote)
	st.RemoteRadius = s.radius
	st.History = s.history.len()
	st.Paused = s.paused
	st.PlaylistPosition = s.position
	st.PlaylistLength = s.length
	return st
}

func (e *Engine) trackRef(id track.ID) *TrackRef {
	if !id.Valid() {
		return nil
	}
	t, err := e.store.Track(id)
	if err != nil {
		return nil
	}
	return &TrackRef{ID: t.ID, Path: t.Path, Artist: t.Artist, Title: t.Title}
}

// Close ends the active session and waits for the prepare job.
func (e *Engine) Close() error {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()

	e.mu.Lock()
	if e.session != nil {
		e.endSessionLocked()
	}
	e.mu.Unlock()
	return e.runner.Wait(jobs.PrepareNextTrack)
}

func (e *Engine) active() *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func (e *Engine) onCommand(ctx context.Context, kind CommandKind) error {
	switch kind {
	case ToggleLibrary:
		return e.toggle(ctx, ModeLibrary)
	case TogglePlaylist:
		return e.toggle(ctx, ModePlaylist)
	case Previous:
		return e.onPrevious(ctx)
	case Next:
		return e.onNext(ctx)
	case Rescan:
		e.mu.Lock()
		m := e.maint
		e.mu.Unlock()
		if m == nil {
			return ErrNoMaintainer
		}
		return m.Rescan(ctx)
	default:
		return fmt.Errorf("unknown command %s", kind)
	}
}

// toggle implements the mode buttons: the active mode turns shuffle off,
// the other mode switches without resetting the session, and any mode
// starts a session when shuffle is off.
func (e *Engine) toggle(ctx context.Context, m Mode) error {
	e.mu.Lock()
	if !e.controlsEnabled {
		e.mu.Unlock()
		return ErrControlsDisabled
	}
	if m == ModePlaylist && !e.playlistCapable {
		e.mu.Unlock()
		return fmt.Errorf("%w: playlist mode", ErrCapability)
	}

	s := e.session
	switch {
	case s != nil && s.mode == m:
		s.logger.Info().Msg("Smart shuffle off")
		e.endSessionLocked()
		e.mu.Unlock()
		return nil
	case s != nil:
		s.mode = m
		s.logger.Info().Str("mode", m.String()).Msg("Smart shuffle mode switched")
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	return e.activate(ctx, m)
}

// activate starts a session from the playing track, or a random one, and
// restarts playback on a fresh playlist.
func (e *Engine) activate(ctx context.Context, m Mode) error {
	if err := e.runner.Wait(jobs.LoadMap); err != nil {
		e.logger.Warn().Err(err).Msg("Map load failed before activation")
	}
	if e.store.Len() == 0 {
		return ErrEmptyStore
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = e.clock.Now().UnixNano()
	}
	s := newSession(m, seed, e.logger)

	start := track.NoID
	np, err := e.player.Current(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not query playing track")
	} else if np.Playing {
		if id, ok := e.store.FindByPath(np.Path); ok {
			start = id
		}
	}
	if !start.Valid() {
		start, _ = s.randomID(e.store)
	}
	t, err := e.store.Track(start)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	e.mu.Lock()
	e.session = s
	e.mu.Unlock()
	metrics.RemoteRadius.Set(0)

	if err := e.restartPlaylist(ctx, t.Path); err != nil {
		return err
	}

	s.logger.Info().
		Str("mode", m.String()).
		Int("track_id", int(start)).
		Str("path", t.Path).
		Msg("Smart shuffle on")
	return nil
}

func (e *Engine) restartPlaylist(ctx context.Context, path string) error {
	if err := e.player.Clear(ctx); err != nil {
		return fmt.Errorf("clear playlist: %w", err)
	}
	if err := e.player.Enqueue(ctx, path); err != nil {
		return fmt.Errorf("enqueue %s: %w", path, err)
	}
	if err := e.player.Play(ctx, 0); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	return nil
}

// endSessionLocked turns shuffle off and releases the history flags.
func (e *Engine) endSessionLocked() {
	for _, id := range e.session.history.snapshot() {
		_ = e.store.SetAlreadyPlayed(id, false)
	}
	e.session = nil
	metrics.RemoteRadius.Set(0)
}

func (e *Engine) onTrackStarted(ctx context.Context) error {
	s := e.active()
	if s == nil {
		return nil
	}

	np, err := e.player.Current(ctx)
	if err != nil {
		return fmt.Errorf("query playing track: %w", err)
	}

	id, found := e.store.FindByPath(np.Path)
	if !found {
		s.logger.Warn().Str("path", np.Path).Msg("Playing track is not in the library")
		id = track.NoID
	} else if secs := int(np.Duration.Round(time.Second) / time.Second); secs > 0 {
		_ = e.store.SetLength(id, secs)
	}

	now := e.clock.Now()
	capacity := historyCapacity(e.store.Len())

	e.mu.Lock()
	if e.session != s {
		e.mu.Unlock()
		return nil
	}
	s.playing = id
	s.position, s.length = np.Position, np.Length
	s.resetTimers()
	s.started = now
	var evicted []track.ID
	if found {
		evicted = s.history.push(id, capacity)
		for _, old := range evicted {
			_ = e.store.SetAlreadyPlayed(old, false)
		}
		_ = e.store.SetAlreadyPlayed(id, true)
	}
	size := s.history.len()
	e.mu.Unlock()

	s.logger.Debug().
		Int("track_id", int(id)).
		Int("history", size).
		Int("history_capacity", capacity).
		Int("position", np.Position).
		Int("playlist_length", np.Length).
		Msg("Track started")

	return e.startPrepare(s)
}

// startPrepare joins the previous prepare run and starts a new one.
func (e *Engine) startPrepare(s *session) error {
	if err := e.runner.Wait(jobs.PrepareNextTrack); err != nil {
		s.logger.Debug().Err(err).Msg("Previous next-track preparation failed")
	}

	e.mu.Lock()
	in := prepareInput{
		session: s,
		playing: s.playing,
		history: s.history.snapshot(),
		local:   s.local,
		remote:  s.remote,
		radius:  s.radius,
	}
	e.mu.Unlock()

	if err := e.runner.Start(jobs.PrepareNextTrack, func(ctx context.Context) error {
		return e.prepare(ctx, in)
	}); err != nil {
		return fmt.Errorf("start next-track preparation: %w", err)
	}
	return nil
}

func (e *Engine) onTrackStopped(ctx context.Context, endOfTrack bool) error {
	s := e.active()
	if s == nil {
		return nil
	}

	e.mu.Lock()
	s.ended = e.clock.Now()
	last := s.atLastSlot()
	e.mu.Unlock()

	if !endOfTrack {
		s.logger.Debug().Msg("Playback stopped")
		return nil
	}
	if !last {
		return nil
	}
	return e.continuePlayback(ctx, s)
}

func (e *Engine) onPlaybackState(state PlaybackState) {
	s := e.active()
	if s == nil {
		return
	}
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	switch state {
	case StatePaused:
		if !s.paused {
			s.paused = true
			s.pauseStart = now
		}
	case StatePlaying:
		if s.paused {
			s.paused = false
			s.pauseEnd = now
			if !s.pauseStart.IsZero() && now.After(s.pauseStart) {
				s.pausedTotal += now.Sub(s.pauseStart)
			}
		}
	case StateStopped:
	}
}

// onNext skips to the next entry. At the end of the playlist a candidate
// is appended first, chosen by how much of the skipped track was heard.
func (e *Engine) onNext(ctx context.Context) error {
	s := e.active()
	if s == nil {
		return nil
	}

	e.mu.Lock()
	last := s.atLastSlot()
	pos := s.position
	e.mu.Unlock()

	var err error
	if last {
		err = e.continuePlayback(ctx, s)
	} else if perr := e.player.Play(ctx, pos+1); perr != nil {
		err = fmt.Errorf("skip to next: %w", perr)
	}

	e.mu.Lock()
	s.resetTimers()
	e.mu.Unlock()
	return err
}

func (e *Engine) onPrevious(ctx context.Context) error {
	s := e.active()
	if s == nil {
		return nil
	}

	e.mu.Lock()
	s.resetTimers()
	pos := s.position
	e.mu.Unlock()

	if pos > 0 {
		if err := e.player.Play(ctx, pos-1); err != nil {
			return fmt.Errorf("skip to previous: %w", err)
		}
	}
	return nil
}

// continuePlayback appends the local or remote candidate and plays it.
// A listened fraction at or above ListenThreshold keeps playback nearby;
// below it the listener probably skipped, so playback branches out.
// Tracks without a measurement or a known length continue locally.
func (e *Engine) continuePlayback(ctx context.Context, s *session) error {
	if err := e.runner.Wait(jobs.PrepareNextTrack); err != nil {
		s.logger.Warn().Err(err).Msg("Next-track preparation failed, using previous candidates")
	}

	e.mu.Lock()
	if e.session != s {
		e.mu.Unlock()
		return nil
	}
	playing, local, remote, pos := s.playing, s.local, s.remote, s.position
	heard, measured := s.listened(e.clock.Now())
	e.mu.Unlock()

	length := 0
	if t, err := e.store.Track(playing); err == nil {
		length = t.Length
	}
	fraction := 1.0
	if measured && length > 0 {
		fraction = heard.Seconds() / float64(length)
	}

	next, source := local, "local"
	if fraction < e.cfg.ListenThreshold {
		next, source = remote, "remote"
	}
	if !next.Valid() {
		var ok bool
		if next, ok = s.randomID(e.store); !ok {
			return ErrEmptyStore
		}
		source = "random"
	}

	t, err := e.store.Track(next)
	if err != nil {
		return fmt.Errorf("continue playback: %w", err)
	}
	if err := e.player.Enqueue(ctx, t.Path); err != nil {
		return fmt.Errorf("enqueue %s: %w", t.Path, err)
	}

	// The local candidate sets the baseline radius whichever branch was
	// taken.
	if e.store.HasCoordinate(playing) && e.store.HasCoordinate(local) {
		if d, err := e.store.Distance(playing, local); err == nil {
			e.mu.Lock()
			s.radius = d
			e.mu.Unlock()
			metrics.RemoteRadius.Set(d)
		}
	}

	if err := e.player.Play(ctx, pos+1); err != nil {
		return fmt.Errorf("advance playback: %w", err)
	}
	metrics.RecordCandidateSelection(source)

	s.logger.Info().
		Int("track_id", int(next)).
		Str("source", source).
		Float64("listened_fraction", fraction).
		Msg("Continuation enqueued")
	return nil
}
