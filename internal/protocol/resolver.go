// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/metrics"
	"github.com/tomtom215/soundmap/internal/track"
)

// Fetcher sends one batch request and returns the raw response body.
type Fetcher interface {
	FetchBatch(ctx context.Context, batch []Query) ([]byte, error)
}

// Cache remembers definitive resolutions by track.Key so that rescans do
// not query the service again for known (artist, title) pairs.
type Cache interface {
	Get(key string) (coordstore.Resolution, bool)
	Put(key string, r coordstore.Resolution) error
}

// Resolver resolves pending tracks of a coordinate store in batches. It
// implements coordstore.Resolver.
type Resolver struct {
	fetcher        Fetcher
	cache          Cache
	tracksPerQuery int
	logger         zerolog.Logger
}

// NewResolver creates a resolver. cache may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewResolver(fetcher Fetcher, cache Cache, tracksPerQuery int, logger zerolog.Logger) *Resolver {
	if tracksPerQuery < 1 {
		tracksPerQuery = DefaultConfig().TracksPerQuery
	}
	return &Resolver{
		fetcher:        fetcher,
		cache:          cache,
		tracksPerQuery: tracksPerQuery,
		logger:         logger.With().Str("component", "resolver").Logger(),
	}
}

type pendingTrack struct {
	id  track.ID
	key string
	q   Query
}

// Resolve resolves ids against the cache and then the service, applying
// every definitive answer to store, and rebuilds the spatial index once at
// the end. Invalid ids are logged and skipped.
//
// A failed batch leaves its tracks pending and does not stop later batches.
// Cancellation stops between batches; answers already applied are kept.
// The returned error joins every batch failure.
func (r *Resolver) Resolve(ctx context.Context, store *coordstore.Store, ids []track.ID) error {
	defer store.Rebuild()

	work := make([]pendingTrack, 0, len(ids))
	cached := 0
	for _, id := range ids {
		t, err := store.Track(id)
		if err != nil {
			r.logger.Warn().Err(err).Int("track_id", int(id)).Msg("Skipping invalid track index")
			continue
		}
		key := t.Key()
		if r.cache != nil {
			res, hit := r.cache.Get(key)
			metrics.RecordCacheLookup(hit)
			if hit {
				if err := store.ApplyResolution(id, res); err == nil {
					metrics.RecordResolvedTrack(res.Status.String())
					cached++
					continue
				}
				// A cached entry from a different dimension count is stale; ask the service.
			}
		}
		work = append(work, pendingTrack{id: id, key: key, q: Query{Artist: t.Artist, Title: t.Title}})
	}

	batches := (len(work) + r.tracksPerQuery - 1) / r.tracksPerQuery
	r.logger.Info().
		Int("requested", len(ids)).
		Int("cached", cached).
		Int("remote", len(work)).
		Int("batches", batches).
		Msg("Resolving coordinates")

	var errs []error
	resolved, unresolved := 0, 0
	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("resolution stopped before batch %d of %d: %w", b+1, batches, err))
			break
		}

		lo := b * r.tracksPerQuery
		hi := min(lo+r.tracksPerQuery, len(work))
		group := work[lo:hi]

		queries := make([]Query, len(group))
		for i, p := range group {
			queries[i] = p.q
		}

		body, err := r.fetcher.FetchBatch(ctx, queries)
		if err != nil {
			r.logger.Warn().Err(err).Int("batch", b+1).Int("tracks", len(group)).Msg("Batch request failed, tracks stay pending")
			errs = append(errs, fmt.Errorf("batch %d: %w", b+1, err))
			unresolved += len(group)
			continue
		}

		outcomes := Parse(bytes.NewReader(body), len(group), store.Dimensions())
		for i, o := range outcomes {
			p := group[i]
			switch o := o.(type) {
			case Resolved:
				res := o.Resolution()
				if err := store.ApplyResolution(p.id, res); err != nil {
					r.logger.Warn().Err(err).Int("track_id", int(p.id)).Msg("Could not apply resolution")
					unresolved++
					continue
				}
				metrics.RecordResolvedTrack(o.Status.String())
				resolved++
				if r.cache != nil {
					if err := r.cache.Put(p.key, res); err != nil {
						r.logger.Debug().Err(err).Int("track_id", int(p.id)).Msg("Resolution cache write failed")
					}
				}
			case Unresolved:
				metrics.ProtocolParseErrors.Inc()
				unresolved++
				var pe *ParseError
				ev := r.logger.Warn().Err(o.Err).Int("track_id", int(p.id)).Int("batch", b+1)
				if errors.As(o.Err, &pe) {
					ev = ev.Int("line", pe.Line).Str("state", pe.State)
				}
				ev.Msg("Malformed response record, track stays pending")
			}
		}
	}

	r.logger.Info().
		Int("resolved", resolved+cached).
		Int("unresolved", unresolved).
		Int("failed_batches", len(errs)).
		Msg("Coordinate resolution finished")

	return errors.Join(errs...)
}
