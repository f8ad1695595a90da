// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package mpdhost connects the shuffle engine to a Music Player Daemon.

It provides three pieces built on github.com/fhs/gompd/v2:

  - Player implements shuffle.Player over MPD's command protocol.
  - Library implements library.Reader from MPD's song database.
  - Watcher is a suture service that follows MPD's "player" idle events
    and translates status changes into shuffle events.

Commands use a short-lived connection each, so that a dropped connection
never wedges the engine and commands never interleave with the watcher's
idle connection.

# Paths

MPD identifies songs by URIs relative to its music directory. When
Config.MusicDir is set, URIs are joined onto it so that store paths match
those produced by library.FSReader over the same directory. Without it,
the raw URIs are used as paths.

# Event Translation

The watcher keeps the previous status snapshot and compares it with the
one fetched after each idle event:

  - a new song while playing emits TrackStopped then TrackStarted
  - playing after a stop emits TrackStarted
  - a stop after playing emits TrackStopped; EndOfTrack is set when the
    estimated position reached the end of the song within
    Config.EndTolerance
  - pause and resume of the same song emit PlaybackStateChanged
*/
package mpdhost
