// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"context"
	"time"
)

// NowPlaying describes the host's current playback.
type NowPlaying struct {
	Playing  bool
	Path     string
	Title    string
	Elapsed  time.Duration
	Duration time.Duration
	// Position is the 0-based playlist index of the current entry.
	Position int
	// Length is the number of playlist entries.
	Length int
}

// Player controls the host media player.
type Player interface {
	Current(ctx context.Context) (NowPlaying, error)
	Enqueue(ctx context.Context, path string) error
	Clear(ctx context.Context) error
	Play(ctx context.Context, position int) error
	Stop(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}

// UI is the host user interface.
type UI interface {
	SetControlsEnabled(enabled bool)
	// Confirm asks a yes/no question and reports the answer.
	Confirm(ctx context.Context, title, question string) bool
	Notify(ctx context.Context, title, message string)
}

// Maintainer runs library maintenance on behalf of the engine.
type Maintainer interface {
	Rescan(ctx context.Context) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
