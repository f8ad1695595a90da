// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"context"
	"fmt"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/metrics"
	"github.com/tomtom215/soundmap/internal/track"
)

// prepareInput is the session state the prepare job works from.
type prepareInput struct {
	session *session
	playing track.ID
	history []track.ID
	local   track.ID
	remote  track.ID
	radius  float64
}

// prepare computes the local and remote candidates for the playing track
// and stores them in the session, unless the session ended meanwhile.
func (e *Engine) prepare(ctx context.Context, in prepareInput) error {
	if e.beforePrepare != nil {
		e.beforePrepare()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := in.session
	local, remote, radius := in.local, in.remote, in.radius

	if !e.store.HasCoordinate(in.playing) {
		// Without a coordinate there is nothing to be similar to.
		id, ok := s.randomID(e.store)
		if !ok {
			return ErrEmptyStore
		}
		metrics.RecordCandidateFallback("no_coordinate")
		local, remote = id, id
	} else {
		var err error
		if local, err = e.localCandidate(in); err != nil {
			return err
		}
		radius = NextRadius(radius, e.cfg.RemoteScale, e.cfg.RemoteConstant, e.cfg.RemoteBound)
		if remote, err = e.remoteCandidate(in, radius); err != nil {
			return err
		}
	}

	e.mu.Lock()
	if e.session == s {
		s.local, s.remote, s.radius = local, remote, radius
	}
	e.mu.Unlock()
	metrics.RemoteRadius.Set(radius)

	s.logger.Debug().
		Int("playing", int(in.playing)).
		Int("local", int(local)).
		Int("remote", int(remote)).
		Float64("radius", radius).
		Msg("Next track prepared")
	return nil
}

// localCandidate returns the nearest track outside the history. The window
// starts at len(history)+1 neighbors and doubles up to MaxWidenings times.
// When every neighbor was played it falls back to a random unplayed track,
// then to any random track.
func (e *Engine) localCandidate(in prepareInput) (track.ID, error) {
	size := e.store.Len()
	k := len(in.history) + 1

	for widen := 0; ; widen++ {
		neighbors, err := e.store.NearestTo(in.playing, k)
		if err != nil {
			return track.NoID, fmt.Errorf("local neighbors: %w", err)
		}
		for _, n := range neighbors {
			if n.ID != in.playing && !e.store.AlreadyPlayed(n.ID) {
				return n.ID, nil
			}
		}
		if widen >= e.cfg.MaxWidenings || k >= size {
			break
		}
		k = min(2*k, size)
	}

	if id, ok := in.session.randomUnplayedID(e.store); ok {
		metrics.RecordCandidateFallback("window_exhausted")
		return id, nil
	}
	metrics.RecordCandidateFallback("all_played")
	if id, ok := in.session.randomID(e.store); ok {
		return id, nil
	}
	return track.NoID, ErrEmptyStore
}

// remoteCandidate draws a target at distance radius in a uniform random
// direction and returns the nearest track to it that is not playing. A
// history without a located previous track gives no reference to scale
// from, so the candidate is random.
func (e *Engine) remoteCandidate(in prepareInput, radius float64) (track.ID, error) {
	n := len(in.history)
	if n < 2 || !e.store.HasCoordinate(in.history[n-2]) {
		metrics.RecordCandidateFallback("no_reference")
		if id, ok := in.session.randomID(e.store); ok {
			return id, nil
		}
		return track.NoID, ErrEmptyStore
	}

	dims := e.store.Dimensions()
	target := in.session.randomDirection(dims)
	var center []float64
	if e.cfg.RemoteAnchor == AnchorCurrent {
		c, ok, err := e.store.CoordinateOf(in.playing)
		if err != nil {
			return track.NoID, fmt.Errorf("remote anchor: %w", err)
		}
		if !ok {
			return track.NoID, fmt.Errorf("remote anchor %d: %w", in.playing, coordstore.ErrNoCoordinate)
		}
		center = c
	}
	for i := range target {
		target[i] *= radius
		if center != nil {
			target[i] += center[i]
		}
	}

	neighbors, err := e.store.Nearest(target, 2)
	if err != nil {
		return track.NoID, fmt.Errorf("remote neighbors: %w", err)
	}
	for _, nb := range neighbors {
		if nb.ID != in.playing {
			return nb.ID, nil
		}
	}
	if id, ok := in.session.randomID(e.store); ok {
		return id, nil
	}
	return track.NoID, ErrEmptyStore
}
