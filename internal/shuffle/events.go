// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"fmt"
	"strings"
)

// Event is one host notification consumed by the engine.
type Event interface {
	// Kind returns a stable name used in logs and metric labels.
	Kind() string
}

// TrackStarted reports that the host started playing a track. The engine
// asks the Player for the details.
type TrackStarted struct{}

// TrackStopped reports that playback stopped. EndOfTrack is true when the
// track played to its end rather than being stopped by the listener.
type TrackStopped struct {
	EndOfTrack bool
}

// PlaybackState is the play/pause/stop state of the host.
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

func (s PlaybackState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// PlaybackStateChanged reports a pause or resume.
type PlaybackStateChanged struct {
	State PlaybackState
}

// CommandKind is a listener command.
type CommandKind int

const (
	ToggleLibrary CommandKind = iota
	TogglePlaylist
	Previous
	Next
	Rescan
)

var commandNames = map[CommandKind]string{
	ToggleLibrary:  "toggle_library",
	TogglePlaylist: "toggle_playlist",
	Previous:       "previous",
	Next:           "next",
	Rescan:         "rescan",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// ParseCommandKind parses a command name such as "toggle_library".
// Dashes are accepted in place of underscores.
func ParseCommandKind(s string) (CommandKind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for k, n := range commandNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", s)
}

// CommandNames lists the accepted command names.
func CommandNames() []string {
	return []string{"toggle_library", "toggle_playlist", "previous", "next", "rescan"}
}

// CommandInvoked carries a listener command.
type CommandInvoked struct {
	Command CommandKind
}

func (TrackStarted) Kind() string         { return "track_started" }
func (TrackStopped) Kind() string         { return "track_stopped" }
func (PlaybackStateChanged) Kind() string { return "playback_state_changed" }
func (CommandInvoked) Kind() string       { return "command_invoked" }
