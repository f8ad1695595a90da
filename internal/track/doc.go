// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package track defines the value types shared by every soundmap component:
the Track record and the ResolutionStatus returned by the similarity
database.

# Resolution Status

The status doubles as the wire code of the resolution protocol and as the
first field of each persisted map line:

	-4 Untested                 not queried yet (sentinel)
	-3 NothingFound             no coordinate, ever
	-2 TitleNotFound            artist id + coordinate
	-1 ArtistNotFound           no coordinate, ever
	 0 AllFound                 artist id + title id + coordinate
	 1 ArtistApproximate        corrected artist, ids + coordinate
	 2 TitleApproximate         corrected title, ids + coordinate
	 3 ArtistTitleApproximate   corrected artist and title, ids + coordinate

The server may also send 4, a synonym of 3; StatusFromCode folds it.

# Ownership

Tracks are owned by the coordinate store. Callers receive copies; mutation
goes through store methods so that the store lock covers every write.
*/
package track
