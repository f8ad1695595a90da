// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package coordstore holds the music library as a set of tracks with optional
coordinates in a D-dimensional similarity space, and answers k-nearest
neighbor queries over the tracks that have one.

# Data Model

Track ids are dense indices 0..Len()-1 into the store. A track has a
coordinate exactly when its resolution status says so (see package track);
the coordinate rows of other tracks are never read.

	store, _ := coordstore.New(coordstore.DefaultConfig(), logger)
	id := store.Insert(track.New("/music/a.mp3"))
	_ = store.ApplyResolution(id, coordstore.Resolution{
	    Status: track.AllFound,
	    Coords: vec,
	})
	store.Rebuild()
	neighbors, _ := store.NearestTo(id, 10)

# Spatial Index

The index is an immutable kd-tree over a snapshot of the coordinates taken
by Rebuild. Inserting or resolving tracks does not change query results
until the next Rebuild. Only tracks with coordinates are indexed.

Nearest always asks for at least two neighbors: the first neighbor of a
self-query is the query track.

# Persistence

Save and Load use a line-oriented text format: a count line followed by one
line per track holding the status code, the database ids and coordinate the
status implies, the length in seconds and the path with spaces written as
'|'. SaveFile resolves pending tracks first and replaces the file atomically.

# Thread Safety

All Store methods are safe for concurrent use.
*/
package coordstore
