// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

// Package jobs runs the long operations of the shuffle engine off the event
// loop: loading the map, scanning the library and preparing the next track.
//
// Each kind owns a single Slot. Start launches one run and returns
// ErrSlotBusy while a run is in flight; Wait joins the run and returns its
// error. Panics inside a run are recovered into a *PanicError. Runner.Close
// waits for every slot, so no run is abandoned mid-flight.
package jobs
