// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package mpdhost

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/track"
)

// Library reads tracks from MPD's database. It implements library.Reader.
type Library struct {
	d      dialer
	paths  pathMapper
	logger zerolog.Logger
}

// NewLibrary creates a library reader.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLibrary(cfg Config, logger zerolog.Logger) (*Library, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mpd config: %w", err)
	}
	return &Library{
		d:      dialer{cfg: cfg},
		paths:  pathMapper{root: cfg.MusicDir},
		logger: logger.With().Str("component", "mpd").Logger(),
	}, nil
}

// Tracks lists every song in the database.
func (l *Library) Tracks(ctx context.Context) ([]track.Track, error) {
	var tracks []track.Track
	err := l.d.withConn(ctx, func(c *mpd.Client) error {
		attrs, err := c.ListAllInfo("/")
		if err != nil {
			return fmt.Errorf("list all info: %w", err)
		}
		tracks = make([]track.Track, 0, len(attrs))
		for _, a := range attrs {
			if t, ok := trackFromAttrs(a, l.paths); ok {
				tracks = append(tracks, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info().Int("tracks", len(tracks)).Msg("MPD library read")
	return tracks, nil
}

// Count returns the number of songs MPD reports.
func (l *Library) Count(ctx context.Context) (int, error) {
	var n int
	err := l.d.withConn(ctx, func(c *mpd.Client) error {
		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		n, err = strconv.Atoi(stats["songs"])
		if err != nil {
			return fmt.Errorf("stats songs %q: %w", stats["songs"], err)
		}
		return nil
	})
	return n, err
}

// trackFromAttrs converts one ListAllInfo entry. Directory and playlist
// entries carry no "file" key and are skipped.
func trackFromAttrs(a mpd.Attrs, paths pathMapper) (track.Track, bool) {
	uri := a["file"]
	if uri == "" {
		return track.Track{}, false
	}
	t := track.New(paths.toPath(uri))
	t.Artist = a["Artist"]
	t.Title = a["Title"]
	t.Album = a["Album"]
	t.Genre = a["Genre"]
	t.Year = year(a["Date"])
	t.Length = int(songDuration(a).Seconds())
	if t.Title == "" {
		base := path.Base(uri)
		t.Title = strings.TrimSuffix(base, path.Ext(base))
	}
	return t, true
}

// year reads the leading year of an MPD Date tag such as "1983-05-01".
func year(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
