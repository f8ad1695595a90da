// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/track"
)

// fakeFetcher answers batches from a queue of bodies or errors.
type fakeFetcher struct {
	mu      sync.Mutex
	bodies  []string
	errs    []error
	batches [][]Query
}

func (f *fakeFetcher) FetchBatch(_ context.Context, batch []Query) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.batches)
	f.batches = append(f.batches, batch)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.bodies) {
		return []byte(f.bodies[i]), nil
	}
	return nil, errors.New("unexpected batch")
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]coordstore.Resolution
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]coordstore.Resolution)}
}

func (c *mapCache) Get(key string) (coordstore.Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	return r, ok
}

func (c *mapCache) Put(key string, r coordstore.Resolution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = r
	return nil
}

func newStoreWithTracks(t *testing.T, names ...[2]string) *coordstore.Store {
	t.Helper()
	cfg := coordstore.DefaultConfig()
	cfg.Dimensions = 2
	s, err := coordstore.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("coordstore.New() error = %v", err)
	}
	for _, n := range names {
		tr := track.New("/music/" + n[0] + "/" + n[1] + ".mp3")
		tr.Artist, tr.Title = n[0], n[1]
		s.Insert(tr)
	}
	return s
}

func TestResolver_ResolvesInBatches(t *testing.T) {
	store := newStoreWithTracks(t,
		[2]string{"Nina Simone", "Sinnerman"},
		[2]string{"Nobody", "Nothing"},
		[2]string{"Beatels", "Yesterday"},
	)
	fetcher := &fakeFetcher{bodies: []string{
		"0\n12\n34\n0.1\n0.2\n-3\n",
		"1\nThe Beatles\n3\n4\n0.5\n0.5\n",
	}}

	r := NewResolver(fetcher, nil, 2, zerolog.Nop())
	if err := r.Resolve(context.Background(), store, store.Missing()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(fetcher.batches) != 2 || len(fetcher.batches[0]) != 2 || len(fetcher.batches[1]) != 1 {
		t.Fatalf("Unexpected batching: %v", fetcher.batches)
	}
	if fetcher.batches[0][0].Artist != "Nina Simone" || fetcher.batches[1][0].Title != "Yesterday" {
		t.Errorf("Batches not in worklist order: %v", fetcher.batches)
	}

	st := store.Stats()
	if st.Pending != 0 || st.Indexed != 2 {
		t.Errorf("Unexpected stats %+v", st)
	}

	first, _ := store.Track(0)
	if first.ArtistDBID != 12 || first.TitleDBID != 34 {
		t.Errorf("Track 0 ids %d/%d, want 12/34", first.ArtistDBID, first.TitleDBID)
	}
	coords, ok, _ := store.CoordinateOf(0)
	if !ok || coords[0] != 0.1 || coords[1] != 0.2 {
		t.Errorf("Track 0 coordinate %v", coords)
	}
	second, _ := store.Track(1)
	if second.Status != track.NothingFound || second.ArtistDBID != 0 {
		t.Errorf("Track 1 = %+v", second)
	}
	third, _ := store.Track(2)
	if third.Artist != "The Beatles" || third.Title != "Yesterday" {
		t.Errorf("Expected corrected artist, got %q / %q", third.Artist, third.Title)
	}
}

func TestResolver_FailedBatchStaysPending(t *testing.T) {
	store := newStoreWithTracks(t, [2]string{"a", "1"}, [2]string{"b", "2"})
	fetcher := &fakeFetcher{
		errs:   []error{errors.New("connection reset")},
		bodies: []string{"", "-3\n"},
	}

	r := NewResolver(fetcher, nil, 1, zerolog.Nop())
	err := r.Resolve(context.Background(), store, store.Missing())
	if err == nil {
		t.Fatal("Expected batch error")
	}
	if !store.IsPending(0) {
		t.Error("Track of failed batch must stay pending")
	}
	if store.IsPending(1) {
		t.Error("Later batch must still be applied")
	}
}

func TestResolver_MalformedRecordStaysPending(t *testing.T) {
	store := newStoreWithTracks(t, [2]string{"a", "1"}, [2]string{"b", "2"})
	fetcher := &fakeFetcher{bodies: []string{"0\nx\n2\n0.1\n0.2\n-1\n"}}

	r := NewResolver(fetcher, nil, 25, zerolog.Nop())
	if err := r.Resolve(context.Background(), store, store.Missing()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !store.IsPending(0) {
		t.Error("Malformed record must leave its track pending")
	}
	if store.IsPending(1) {
		t.Error("Well-formed record must be applied")
	}
}

func TestResolver_UsesCache(t *testing.T) {
	cache := newMapCache()
	body := "0\n1\n2\n0.3\n0.4\n"

	first := newStoreWithTracks(t, [2]string{"Artist", "Title"})
	fetcher := &fakeFetcher{bodies: []string{body}}
	if err := NewResolver(fetcher, cache, 25, zerolog.Nop()).Resolve(context.Background(), first, first.Missing()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Same pair with different spacing and case hits the cache
	second := newStoreWithTracks(t, [2]string{"  artist ", "TITLE"})
	cold := &fakeFetcher{}
	if err := NewResolver(cold, cache, 25, zerolog.Nop()).Resolve(context.Background(), second, second.Missing()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cold.calls() != 0 {
		t.Errorf("Expected no service call, got %d", cold.calls())
	}
	coords, ok, _ := second.CoordinateOf(0)
	if !ok || coords[0] != 0.3 {
		t.Errorf("Expected cached coordinate, got %v", coords)
	}
	if second.Stats().Indexed != 1 {
		t.Error("Expected index rebuilt after cache-only resolution")
	}
}

func TestResolver_CanceledContext(t *testing.T) {
	store := newStoreWithTracks(t, [2]string{"a", "1"})
	fetcher := &fakeFetcher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewResolver(fetcher, nil, 25, zerolog.Nop()).Resolve(ctx, store, store.Missing())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if fetcher.calls() != 0 {
		t.Errorf("Expected no batch after cancellation, got %d", fetcher.calls())
	}
}

func TestResolver_SkipsInvalidIDs(t *testing.T) {
	store := newStoreWithTracks(t, [2]string{"a", "1"})
	fetcher := &fakeFetcher{bodies: []string{"-3\n"}}

	err := NewResolver(fetcher, nil, 25, zerolog.Nop()).Resolve(context.Background(), store, []track.ID{0, 7})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(fetcher.batches) != 1 || len(fetcher.batches[0]) != 1 {
		t.Errorf("Expected one batch of one track, got %v", fetcher.batches)
	}
}

// Resolver satisfies the store's save-time resolver contract.
var _ coordstore.Resolver = (*Resolver)(nil)
