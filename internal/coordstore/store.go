// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package coordstore

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/metrics"
	"github.com/tomtom215/soundmap/internal/track"
)

// minNeighbors is the floor applied to every k-NN query. Neighbor 0 of a
// self-query is the query track itself, which callers discard.
const minNeighbors = 2

// Resolver resolves pending track ids into coordinates, mutating the store
// through ApplyResolution and rebuilding the index when done.
type Resolver interface {
	Resolve(ctx context.Context, store *Store, ids []track.ID) error
}

// Resolution is the outcome of resolving one track.
type Resolution struct {
	Status track.ResolutionStatus
	// Artist and Title carry corrected names for approximate matches.
	// Empty strings leave the stored names unchanged.
	Artist     string
	Title      string
	ArtistDBID uint64
	TitleDBID  uint64
	Coords     []float64
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	Tracks  int `json:"tracks"`
	Pending int `json:"pending"`
	Indexed int `json:"indexed"`
}

// Store owns the tracks, their coordinate vectors, the pending set, the
// path index and the spatial index.
//
// Store is safe for concurrent use. Background jobs take the write lock for
// mutations; queries take the read lock. The spatial index is immutable and
// replaced wholesale by Rebuild, so searches run outside the lock.
type Store struct {
	mu      sync.RWMutex
	cfg     Config
	logger  zerolog.Logger
	tracks  []track.Track
	coords  *pointBuffer
	pending map[track.ID]struct{}
	byPath  map[string]track.ID
	index   *kdTree
}

// New creates an empty store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultConfig().Dimensions
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = DefaultConfig().LeafSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	s := &Store{
		cfg:    cfg,
		logger: logger.With().Str("component", "coordstore").Logger(),
	}
	s.resetLocked(0)
	return s, nil
}

// Dimensions returns the coordinate vector length.
func (s *Store) Dimensions() int {
	return s.cfg.Dimensions
}

// Len returns the number of tracks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Stats returns track, pending and indexed counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *Store) statsLocked() Stats {
	st := Stats{Tracks: len(s.tracks), Pending: len(s.pending)}
	if s.index != nil {
		st.Indexed = s.index.size()
	}
	return st
}

// Insert appends a track with no coordinate and marks it pending. Resolution
// fields of t are discarded. The spatial index is not touched.
func (s *Store) Insert(t track.Track) track.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := track.ID(len(s.tracks))
	t.ID = id
	t.Path = track.NormalizePath(t.Path)
	t.Status = track.Untested
	t.ArtistDBID, t.TitleDBID = 0, 0
	t.AlreadyPlayed = false

	s.tracks = append(s.tracks, t)
	s.coords.appendRow()
	s.pending[id] = struct{}{}
	if t.Path != "" {
		s.byPath[t.Path] = id
	}
	return id
}

// Reserve discards the coordinate array and reallocates it for n rows.
// Tracks whose coordinates are lost by the reallocation go back to pending.
func (s *Store) Reserve(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < len(s.tracks) {
		n = len(s.tracks)
	}
	s.coords = newPointBuffer(s.cfg.Dimensions, n)
	s.coords.rows = len(s.tracks)

	reset := 0
	for i := range s.tracks {
		if s.tracks[i].HasCoordinate() {
			s.tracks[i].Status = track.Untested
			s.pending[s.tracks[i].ID] = struct{}{}
			reset++
		}
	}
	if reset > 0 {
		s.logger.Warn().Int("tracks", reset).Msg("Coordinate array reallocated, resolved tracks requeued")
	}
}

// Clear drops every track, the coordinate array, the pending set, the path
// index and the spatial index. All previously issued ids become invalid.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(0)
	s.publishLocked()
}

func (s *Store) resetLocked(capacity int) {
	s.tracks = make([]track.Track, 0, capacity)
	s.coords = newPointBuffer(s.cfg.Dimensions, capacity)
	s.pending = make(map[track.ID]struct{})
	s.byPath = make(map[string]track.ID)
	s.index = nil
}

// Track returns a copy of the track with the given id.
func (s *Store) Track(id track.ID) (track.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkLocked(id); err != nil {
		return track.Track{}, err
	}
	return s.tracks[id], nil
}

// FindByPath returns the id of the track stored under path.
func (s *Store) FindByPath(path string) (track.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[track.NormalizePath(path)]
	return id, ok
}

// CoordinateOf returns a copy of the coordinate vector of id. The boolean is
// false when the track's status implies no coordinate; that is a normal
// outcome, not an error.
func (s *Store) CoordinateOf(id track.ID) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkLocked(id); err != nil {
		return nil, false, err
	}
	if !s.tracks[id].HasCoordinate() {
		return nil, false, nil
	}
	out := make([]float64, s.cfg.Dimensions)
	copy(out, s.coords.row(int(id)))
	return out, true, nil
}

// HasCoordinate reports whether id refers to a track with a coordinate.
func (s *Store) HasCoordinate(id track.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkLocked(id) == nil && s.tracks[id].HasCoordinate()
}

// Distance returns the Euclidean distance between two tracks.
func (s *Store) Distance(a, b track.ID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range []track.ID{a, b} {
		if err := s.checkLocked(id); err != nil {
			return 0, err
		}
		if !s.tracks[id].HasCoordinate() {
			return 0, fmt.Errorf("%w: %d", ErrNoCoordinate, id)
		}
	}
	return math.Sqrt(squaredDistance(s.coords.row(int(a)), s.coords.row(int(b)))), nil
}

// Nearest returns up to max(k, 2) indexed tracks ordered nearest-first.
// Callers must not depend on the order of tracks at equal distance.
func (s *Store) Nearest(point []float64, k int) ([]Neighbor, error) {
	if len(point) != s.cfg.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(point), s.cfg.Dimensions)
	}
	if k < minNeighbors {
		k = minNeighbors
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}

	start := time.Now()
	result := idx.search(point, k, s.cfg.ErrorBound)
	metrics.RecordNearestQuery(time.Since(start))
	return result, nil
}

// NearestTo runs Nearest from the coordinate of id. The first neighbor is
// normally id itself.
func (s *Store) NearestTo(id track.ID, k int) ([]Neighbor, error) {
	point, ok, err := s.CoordinateOf(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoCoordinate, id)
	}
	return s.Nearest(point, k)
}

// Missing returns the pending ids in ascending order.
func (s *Store) Missing() []track.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]track.ID, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsPending reports whether id still waits for resolution.
func (s *Store) IsPending(id track.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[id]
	return ok
}

// ApplyResolution records the resolution of id and removes it from the
// pending set. Untested resolutions are rejected.
func (s *Store) ApplyResolution(id track.ID, r Resolution) error {
	if !r.Status.IsResolved() || !r.Status.Valid() {
		return fmt.Errorf("apply resolution %d: status %s is not a resolution", id, r.Status)
	}
	if r.Status.HasCoordinate() && len(r.Coords) != s.cfg.Dimensions {
		return fmt.Errorf("apply resolution %d: %w: got %d, want %d", id, ErrDimensionMismatch, len(r.Coords), s.cfg.Dimensions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(id); err != nil {
		return err
	}

	t := &s.tracks[id]
	t.Status = r.Status
	if r.Artist != "" {
		t.Artist = r.Artist
	}
	if r.Title != "" {
		t.Title = r.Title
	}
	if r.Status.HasArtistID() {
		t.ArtistDBID = r.ArtistDBID
	}
	if r.Status.HasTitleID() {
		t.TitleDBID = r.TitleDBID
	}
	if r.Status.HasCoordinate() {
		s.coords.set(int(id), r.Coords)
	}
	delete(s.pending, id)
	return nil
}

// Rebuild replaces the spatial index with one built over every track that
// currently has a coordinate.
func (s *Store) Rebuild() {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.cfg.Dimensions
	ids := make([]track.ID, 0, len(s.tracks))
	for i := range s.tracks {
		if s.tracks[i].HasCoordinate() {
			ids = append(ids, s.tracks[i].ID)
		}
	}
	points := make([]float64, 0, len(ids)*dims)
	for _, id := range ids {
		points = append(points, s.coords.row(int(id))...)
	}

	s.index = buildKDTree(dims, s.cfg.LeafSize, ids, points)
	s.publishLocked()

	metrics.RecordIndexRebuild(time.Since(start))
	s.logger.Debug().
		Int("tracks", len(s.tracks)).
		Int("indexed", len(ids)).
		Dur("duration", time.Since(start)).
		Msg("Spatial index rebuilt")
}

// SetAlreadyPlayed sets the history flag of id.
func (s *Store) SetAlreadyPlayed(id track.ID, played bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(id); err != nil {
		return err
	}
	s.tracks[id].AlreadyPlayed = played
	return nil
}

// AlreadyPlayed reports the history flag of id. Invalid ids report true so
// that they are never proposed.
func (s *Store) AlreadyPlayed(id track.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkLocked(id) != nil {
		return true
	}
	return s.tracks[id].AlreadyPlayed
}

// SetLength updates the length of id when the host knows it better.
func (s *Store) SetLength(id track.ID, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(id); err != nil {
		return err
	}
	s.tracks[id].Length = seconds
	return nil
}

// RandomID returns a uniformly random track id.
func (s *Store) RandomID(rng *rand.Rand) (track.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tracks) == 0 {
		return track.NoID, false
	}
	return track.ID(rng.Intn(len(s.tracks))), true
}

// RandomUnplayedID returns a uniformly random track that is not in the
// session history, or false if every track is.
func (s *Store) RandomUnplayedID(rng *rand.Rand) (track.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]track.ID, 0, len(s.tracks))
	for i := range s.tracks {
		if !s.tracks[i].AlreadyPlayed {
			candidates = append(candidates, s.tracks[i].ID)
		}
	}
	if len(candidates) == 0 {
		return track.NoID, false
	}
	return candidates[rng.Intn(len(candidates))], true
}

func (s *Store) checkLocked(id track.ID) error {
	if id < 0 || int(id) >= len(s.tracks) {
		return invalidIndex(int(id), len(s.tracks))
	}
	return nil
}

func (s *Store) publishLocked() {
	st := s.statsLocked()
	metrics.StoreTracks.Set(float64(st.Tracks))
	metrics.StorePending.Set(float64(st.Pending))
	metrics.StoreIndexed.Set(float64(st.Indexed))
}

// LibraryDrift reports whether the store holds a different number of tracks
// than a library currently reports.
func (s *Store) LibraryDrift(libraryCount int) bool {
	return s.Len() != libraryCount
}
