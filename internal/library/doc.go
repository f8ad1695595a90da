// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

// Package library enumerates the media library and maintains the persisted
// similarity map.
//
// FSReader walks a music directory and reads audio tags with
// github.com/dhowden/tag. Manager runs the two store-mutating background
// jobs: LoadMap, which reads the map file at startup and offers a scan when
// it is missing, unreadable or out of date, and ScanLibrary, which rebuilds
// the store from the library, resolves every track and saves the map. Both
// disable the shuffle controls while they run and re-enable them when they
// finish, whatever the outcome.
package library
