// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package mpdhost

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/shuffle"
)

// Player implements shuffle.Player against MPD.
type Player struct {
	d      dialer
	paths  pathMapper
	logger zerolog.Logger
}

var _ shuffle.Player = (*Player)(nil)

// NewPlayer creates a player.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPlayer(cfg Config, logger zerolog.Logger) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mpd config: %w", err)
	}
	return &Player{
		d:      dialer{cfg: cfg},
		paths:  pathMapper{root: cfg.MusicDir},
		logger: logger.With().Str("component", "mpd").Logger(),
	}, nil
}

// Current reports the current song and playlist position.
func (p *Player) Current(ctx context.Context) (shuffle.NowPlaying, error) {
	var np shuffle.NowPlaying
	err := p.d.withConn(ctx, func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		song, err := c.CurrentSong()
		if err != nil {
			return fmt.Errorf("current song: %w", err)
		}
		np = nowPlaying(status, song, p.paths)
		return nil
	})
	return np, err
}

// nowPlaying converts MPD status and song attributes. A paused song counts
// as playing.
func nowPlaying(status, song mpd.Attrs, paths pathMapper) shuffle.NowPlaying {
	np := shuffle.NowPlaying{
		Playing:  status["state"] == "play" || status["state"] == "pause",
		Path:     paths.toPath(song["file"]),
		Title:    song["Title"],
		Elapsed:  seconds(status["elapsed"]),
		Duration: seconds(status["duration"]),
		Position: atoi(status["song"], -1),
		Length:   atoi(status["playlistlength"], 0),
	}
	if np.Duration == 0 {
		np.Duration = songDuration(song)
	}
	if np.Title == "" && song["file"] != "" {
		base := path.Base(song["file"])
		np.Title = strings.TrimSuffix(base, path.Ext(base))
	}
	if np.Path == "" {
		np.Playing = false
	}
	return np
}

// Enqueue appends a track to the playlist.
func (p *Player) Enqueue(ctx context.Context, trackPath string) error {
	uri := p.paths.toURI(trackPath)
	return p.d.withConn(ctx, func(c *mpd.Client) error {
		if err := c.Add(uri); err != nil {
			return fmt.Errorf("add %s: %w", uri, err)
		}
		p.logger.Debug().Str("uri", uri).Msg("Enqueued")
		return nil
	})
}

// Clear empties the playlist.
func (p *Player) Clear(ctx context.Context) error {
	return p.d.withConn(ctx, func(c *mpd.Client) error {
		return c.Clear()
	})
}

// Play starts the playlist entry at position.
func (p *Player) Play(ctx context.Context, position int) error {
	return p.d.withConn(ctx, func(c *mpd.Client) error {
		if err := c.Play(position); err != nil {
			return fmt.Errorf("play %d: %w", position, err)
		}
		return nil
	})
}

// Stop stops playback.
func (p *Player) Stop(ctx context.Context) error {
	return p.d.withConn(ctx, func(c *mpd.Client) error {
		return c.Stop()
	})
}

// Version returns MPD's protocol version.
func (p *Player) Version(ctx context.Context) (string, error) {
	var v string
	err := p.d.withConn(ctx, func(c *mpd.Client) error {
		v = c.Version()
		return nil
	})
	return v, err
}

// Available pings MPD.
func (p *Player) Available(ctx context.Context) error {
	return p.d.withConn(ctx, func(c *mpd.Client) error {
		return c.Ping()
	})
}
