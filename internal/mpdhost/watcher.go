// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package mpdhost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/shuffle"
)

// ErrWatcherClosed is returned by Serve when MPD closes the idle connection.
var ErrWatcherClosed = errors.New("mpd watcher closed")

// snapshot is the playback status at one instant.
type snapshot struct {
	state    string // "play", "pause" or "stop"
	songID   string
	elapsed  time.Duration
	duration time.Duration
	at       time.Time
}

func snapshotOf(status, song mpd.Attrs, at time.Time) snapshot {
	s := snapshot{
		state:    status["state"],
		songID:   status["songid"],
		elapsed:  seconds(status["elapsed"]),
		duration: seconds(status["duration"]),
		at:       at,
	}
	if s.state == "" {
		s.state = "stop"
	}
	if s.duration == 0 {
		s.duration = songDuration(song)
	}
	return s
}

func (s snapshot) active() bool {
	return s.state == "play" || s.state == "pause"
}

// position estimates the song position at t.
func (s snapshot) position(t time.Time) time.Duration {
	if s.state != "play" || t.Before(s.at) {
		return s.elapsed
	}
	return s.elapsed + t.Sub(s.at)
}

// finished reports whether the song of prev had reached its end by now.
func finished(prev snapshot, now time.Time, tolerance time.Duration) bool {
	if prev.duration <= 0 {
		return false
	}
	return prev.position(now) >= prev.duration-tolerance
}

// transition derives shuffle events from two consecutive snapshots.
func transition(prev, cur snapshot, tolerance time.Duration) []shuffle.Event {
	switch {
	case prev.active() && cur.active() && prev.songID != cur.songID:
		return []shuffle.Event{
			shuffle.TrackStopped{EndOfTrack: finished(prev, cur.at, tolerance)},
			shuffle.TrackStarted{},
		}
	case !prev.active() && cur.state == "play":
		return []shuffle.Event{shuffle.TrackStarted{}}
	case prev.active() && !cur.active():
		return []shuffle.Event{shuffle.TrackStopped{EndOfTrack: finished(prev, cur.at, tolerance)}}
	case prev.state == "play" && cur.state == "pause":
		return []shuffle.Event{shuffle.PlaybackStateChanged{State: shuffle.StatePaused}}
	case prev.state == "pause" && cur.state == "play":
		return []shuffle.Event{shuffle.PlaybackStateChanged{State: shuffle.StatePlaying}}
	}
	return nil
}

// Watcher follows MPD's player subsystem and publishes shuffle events. It
// implements suture.Service; a lost connection ends Serve with an error so
// that the supervisor restarts it.
type Watcher struct {
	d      dialer
	out    chan<- shuffle.Event
	now    func() time.Time
	logger zerolog.Logger
}

// NewWatcher creates a watcher publishing to out.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWatcher(cfg Config, out chan<- shuffle.Event, logger zerolog.Logger) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mpd config: %w", err)
	}
	return &Watcher{
		d:      dialer{cfg: cfg},
		out:    out,
		now:    time.Now,
		logger: logger.With().Str("component", "mpd-watcher").Logger(),
	}, nil
}

// Serve implements suture.Service.
func (w *Watcher) Serve(ctx context.Context) error {
	cfg := w.d.cfg
	mw, err := mpd.NewWatcher(cfg.Network, cfg.Address, cfg.Password, "player")
	if err != nil {
		return fmt.Errorf("mpd watcher: %w", err)
	}
	defer mw.Close()

	go func() {
		for err := range mw.Error {
			w.logger.Warn().Err(err).Msg("Watcher error")
		}
	}()

	prev, err := w.snapshot(ctx)
	if err != nil {
		return err
	}
	w.logger.Info().Str("state", prev.state).Msg("Watching MPD player")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case subsystem, ok := <-mw.Event:
			if !ok {
				return ErrWatcherClosed
			}
			w.logger.Trace().Str("subsystem", subsystem).Msg("Idle event")

			cur, err := w.snapshot(ctx)
			if err != nil {
				return err
			}
			for _, ev := range transition(prev, cur, cfg.EndTolerance) {
				select {
				case w.out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			prev = cur
		}
	}
}

func (w *Watcher) snapshot(ctx context.Context) (snapshot, error) {
	var s snapshot
	err := w.d.withConn(ctx, func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		song, err := c.CurrentSong()
		if err != nil {
			return fmt.Errorf("current song: %w", err)
		}
		s = snapshotOf(status, song, w.now())
		return nil
	})
	return s, err
}

// String implements fmt.Stringer for suture logging.
func (w *Watcher) String() string {
	return "mpd-watcher"
}
