// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package track

import (
	"fmt"
	"strconv"
)

// ResolutionStatus classifies the answer of the similarity database for an
// (artist, title) query. The numeric values are the wire codes used by the
// resolution protocol and the persisted map file.
type ResolutionStatus int

const (
	// Untested means the track has not been sent to the database yet.
	Untested ResolutionStatus = -4
	// NothingFound means neither artist nor title matched.
	NothingFound ResolutionStatus = -3
	// TitleNotFound means the artist matched but the title did not.
	TitleNotFound ResolutionStatus = -2
	// ArtistNotFound means the title matched but the artist did not.
	ArtistNotFound ResolutionStatus = -1
	// AllFound is an exact match.
	AllFound ResolutionStatus = 0
	// ArtistApproximate is an approximate artist with an exact title.
	ArtistApproximate ResolutionStatus = 1
	// TitleApproximate is an exact artist with an approximate title.
	TitleApproximate ResolutionStatus = 2
	// ArtistTitleApproximate is an approximate artist and title.
	ArtistTitleApproximate ResolutionStatus = 3
)

// duplicateApproximateCode is sent by the server as a synonym of ArtistTitleApproximate.
const duplicateApproximateCode = 4

// Statuses lists every status, sentinel first.
var Statuses = []ResolutionStatus{
	Untested,
	NothingFound,
	TitleNotFound,
	ArtistNotFound,
	AllFound,
	ArtistApproximate,
	TitleApproximate,
	ArtistTitleApproximate,
}

// StatusFromCode converts a wire code into a status. Code 4 is folded into
// ArtistTitleApproximate; any other code outside the known range is an error.
func StatusFromCode(code int) (ResolutionStatus, error) {
	if code == duplicateApproximateCode {
		return ArtistTitleApproximate, nil
	}
	s := ResolutionStatus(code)
	if !s.Valid() {
		return Untested, fmt.Errorf("unknown resolution code %d", code)
	}
	return s, nil
}

// ParseStatus parses a decimal wire code.
func ParseStatus(s string) (ResolutionStatus, error) {
	code, err := strconv.Atoi(s)
	if err != nil {
		return Untested, fmt.Errorf("parse resolution code %q: %w", s, err)
	}
	return StatusFromCode(code)
}

// Valid reports whether s is one of the defined statuses.
func (s ResolutionStatus) Valid() bool {
	return s >= Untested && s <= ArtistTitleApproximate
}

// Code returns the wire code.
func (s ResolutionStatus) Code() int {
	return int(s)
}

// IsResolved reports whether the database has answered for this track.
func (s ResolutionStatus) IsResolved() bool {
	return s != Untested
}

// HasCoordinate reports whether a coordinate vector exists for the status.
func (s ResolutionStatus) HasCoordinate() bool {
	switch s {
	case AllFound, ArtistApproximate, TitleApproximate, ArtistTitleApproximate, TitleNotFound:
		return true
	default:
		return false
	}
}

// HasArtistID reports whether an artist database id accompanies the status.
func (s ResolutionStatus) HasArtistID() bool {
	return s.HasCoordinate()
}

// HasTitleID reports whether a title database id accompanies the status.
func (s ResolutionStatus) HasTitleID() bool {
	return s.HasCoordinate() && s != TitleNotFound
}

// IsApproximate reports whether the server corrected the artist or title.
func (s ResolutionStatus) IsApproximate() bool {
	return s == ArtistApproximate || s == TitleApproximate || s == ArtistTitleApproximate
}

// String returns a stable lower_snake name, used in logs and metric labels.
func (s ResolutionStatus) String() string {
	switch s {
	case Untested:
		return "untested"
	case NothingFound:
		return "nothing_found"
	case TitleNotFound:
		return "title_not_found"
	case ArtistNotFound:
		return "artist_not_found"
	case AllFound:
		return "all_found"
	case ArtistApproximate:
		return "artist_approximate"
	case TitleApproximate:
		return "title_approximate"
	case ArtistTitleApproximate:
		return "artist_title_approximate"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}
