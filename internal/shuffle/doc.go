// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package shuffle implements the similarity-driven smart shuffle.

Every track of the library sits at a point of a D-dimensional similarity
space. While shuffle is on, the engine keeps two suggestions for the track
that follows the playing one:

  - the local candidate, the nearest track that was not played recently,
    for continuity;
  - the remote candidate, the nearest track to a random point at distance
    radius, for discovery.

When a track ends at the last playlist slot, the engine appends the local
candidate if the listener heard at least half of the track, and the remote
candidate otherwise.

# Radius

The discovery radius grows on every track start following

	r = min(scale*r + constant, bound)

with scale 5^(1/16), constant 0.3 and bound sqrt(32)/2 by default. It is
re-anchored to the distance actually traveled whenever playback continues
with a local candidate.

# History

The last ceil(ln N)+1 started tracks, N being the library size, are flagged
as played and never proposed as local candidates. When every neighbor in
the search window is flagged, the window doubles up to MaxWidenings times
before a random unplayed track is used.

# Events

The engine consumes a closed set of events: TrackStarted, TrackStopped,
PlaybackStateChanged and CommandInvoked. Host adapters translate their
native notifications into these. Events are handled one at a time;
candidate preparation runs in the PrepareNextTrack job slot and is always
joined before the candidates are read.

# Collaborators

Player drives the host media player, UI asks the listener questions and
shows notices, and Maintainer runs library rescans. All are interfaces so
that tests and other hosts can supply their own.
*/
package shuffle
