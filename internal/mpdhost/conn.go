// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package mpdhost

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/tomtom215/soundmap/internal/track"
)

// dialer opens command connections.
type dialer struct {
	cfg Config
}

func (d dialer) dial() (*mpd.Client, error) {
	if d.cfg.Password != "" {
		return mpd.DialAuthenticated(d.cfg.Network, d.cfg.Address, d.cfg.Password)
	}
	return mpd.Dial(d.cfg.Network, d.cfg.Address)
}

// withConn runs fn with a short-lived connection.
func (d dialer) withConn(ctx context.Context, fn func(c *mpd.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := d.dial()
	if err != nil {
		return fmt.Errorf("dial mpd %s: %w", d.cfg.Address, err)
	}
	defer c.Close()
	return fn(c)
}

// pathMapper converts between MPD URIs and store paths.
type pathMapper struct {
	root string
}

func (m pathMapper) toPath(uri string) string {
	if uri == "" {
		return ""
	}
	if m.root == "" {
		return track.NormalizePath(uri)
	}
	return track.NormalizePath(filepath.Join(m.root, filepath.FromSlash(uri)))
}

func (m pathMapper) toURI(p string) string {
	p = track.NormalizePath(p)
	if m.root == "" {
		return p
	}
	root := track.NormalizePath(m.root)
	if rel, ok := strings.CutPrefix(p, root+"/"); ok {
		return path.Clean(rel)
	}
	return p
}

// seconds parses MPD's fractional second fields. Missing or malformed
// values read as zero.
func seconds(v string) time.Duration {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// songDuration prefers the precise "duration" field over the legacy
// integer "Time".
func songDuration(a mpd.Attrs) time.Duration {
	if d := seconds(a["duration"]); d > 0 {
		return d
	}
	return seconds(a["Time"])
}

func atoi(v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
