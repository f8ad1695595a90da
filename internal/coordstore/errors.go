// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package coordstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned when a track id is outside 0..Len()-1.
	ErrInvalidIndex = errors.New("invalid track index")

	// ErrNoCoordinate is returned by operations that need a coordinate the
	// track does not have.
	ErrNoCoordinate = errors.New("track has no coordinate")

	// ErrDimensionMismatch is returned when a vector has the wrong length.
	ErrDimensionMismatch = errors.New("coordinate dimension mismatch")
)

// MapPersistenceError reports a failure to read or write the map file.
// Line is 1-based and zero when the failure is not tied to a line.
type MapPersistenceError struct {
	Op   string
	Path string
	Line int
	Err  error
}

func (e *MapPersistenceError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("map %s %s:%d: %v", e.Op, e.Path, e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("map %s %s: %v", e.Op, e.Path, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("map %s line %d: %v", e.Op, e.Line, e.Err)
	default:
		return fmt.Sprintf("map %s: %v", e.Op, e.Err)
	}
}

func (e *MapPersistenceError) Unwrap() error {
	return e.Err
}

func invalidIndex(id, size int) error {
	return fmt.Errorf("%w: %d (size %d)", ErrInvalidIndex, id, size)
}
