// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package track

import (
	"path/filepath"
	"strings"
)

// ID is the dense index of a track inside a coordinate store. It doubles as
// the row of the coordinate array and the point index of the spatial index.
type ID int

// NoID marks the absence of a track.
const NoID ID = -1

// Valid reports whether id may refer to a track.
func (id ID) Valid() bool {
	return id >= 0
}

// Track holds the metadata and resolution state of one library entry.
type Track struct {
	ID     ID     `json:"id"`
	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`
	Album  string `json:"album,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Year   int    `json:"year,omitempty"`
	// Length is the duration in whole seconds; zero when unknown.
	Length int    `json:"length"`
	Path   string `json:"path"`

	ArtistDBID uint64           `json:"artist_db_id,omitempty"`
	TitleDBID  uint64           `json:"title_db_id,omitempty"`
	Status     ResolutionStatus `json:"status"`

	// AlreadyPlayed is set while the track sits in the session history.
	AlreadyPlayed bool `json:"already_played"`
}

// New returns an unresolved track for the given path.
func New(path string) Track {
	return Track{
		ID:     NoID,
		Path:   NormalizePath(path),
		Status: Untested,
	}
}

// HasCoordinate reports whether the track's status implies a coordinate.
func (t *Track) HasCoordinate() bool {
	return t.Status.HasCoordinate()
}

// Key returns the lookup key for resolution caching: the lowercased,
// whitespace-collapsed artist and title joined by a NUL byte.
func (t *Track) Key() string {
	return Key(t.Artist, t.Title)
}

// Key builds a resolution cache key from an artist and a title.
func Key(artist, title string) string {
	return normalizeField(artist) + "\x00" + normalizeField(title)
}

func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizePath cleans a file path and converts separators to forward
// slashes so that the host and the library agree on lookups.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(p))
}
