// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Kind names one of the runner's slots.
type Kind int

const (
	// LoadMap reads the persisted map into the store.
	LoadMap Kind = iota
	// ScanLibrary rebuilds the store from the media library.
	ScanLibrary
	// PrepareNextTrack computes the local and remote candidates.
	PrepareNextTrack
)

var kindNames = [...]string{
	LoadMap:          "load_map",
	ScanLibrary:      "scan_library",
	PrepareNextTrack: "prepare_next_track",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// mutatesStore reports whether runs of k write to the coordinate store.
func (k Kind) mutatesStore() bool {
	return k == LoadMap || k == ScanLibrary
}

// Runner holds one slot per job kind. LoadMap and ScanLibrary never run at
// the same time since both rewrite the store.
type Runner struct {
	logger zerolog.Logger
	slots  [len(kindNames)]*Slot

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a runner. Every run receives ctx; Close does not cancel
// it, so callers cancel ctx themselves when runs should stop early.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRunner(ctx context.Context, logger zerolog.Logger) *Runner {
	logger = logger.With().Str("component", "jobs").Logger()
	r := &Runner{logger: logger}
	for k := range r.slots {
		r.slots[k] = newSlot(ctx, Kind(k).String(), logger)
	}
	return r
}

// Slot returns the slot for k.
func (r *Runner) Slot(k Kind) *Slot {
	return r.slots[k]
}

// Start runs fn in the slot for k. It fails with ErrSlotBusy when the slot
// is in flight, or when k mutates the store and the other store job is in
// flight.
func (r *Runner) Start(k Kind, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}
	if k.mutatesStore() {
		for other := range r.slots {
			o := Kind(other)
			if o != k && o.mutatesStore() && r.slots[o].Running() {
				return fmt.Errorf("%s blocked by %s: %w", k, o, ErrSlotBusy)
			}
		}
	}
	return r.slots[k].Start(fn)
}

// Wait blocks until the run in the slot for k completes.
func (r *Runner) Wait(k Kind) error {
	return r.slots[k].Wait()
}

// Running reports whether the slot for k has a run in flight.
func (r *Runner) Running(k Kind) bool {
	return r.slots[k].Running()
}

// Close refuses new runs and waits for every in-flight run. It returns the
// joined errors of the last runs.
func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	var errs []error
	for _, s := range r.slots {
		if err := s.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	r.logger.Debug().Msg("Job runner closed")
	return errors.Join(errs...)
}
