// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/track"
)

// ErrDesynchronized marks tracks that could not be parsed because an earlier
// record in the same response was unreadable.
var ErrDesynchronized = errors.New("response desynchronized by an earlier record")

// state is a position in the per-track response grammar.
type state int

const (
	stateCode state = iota
	stateArtist
	stateTitle
	stateArtistID
	stateTitleID
	stateCoordinate
)

func (s state) String() string {
	switch s {
	case stateCode:
		return "code"
	case stateArtist:
		return "artist"
	case stateTitle:
		return "title"
	case stateArtistID:
		return "artist_id"
	case stateTitleID:
		return "title_id"
	case stateCoordinate:
		return "coordinate"
	default:
		return "unknown"
	}
}

// ParseError reports a malformed or missing field in a response. Line is
// 1-based within the response body.
type ParseError struct {
	Line  int
	State string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response line %d (%s): %v", e.Line, e.State, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Outcome is the parse result for one track of a batch: either Unresolved
// or Resolved.
type Outcome interface {
	outcome()
}

// Unresolved means the track's record could not be read. The track stays
// pending and is retried on the next resolution pass.
type Unresolved struct {
	Err error
}

// Resolved is a complete record. Fields not implied by Status are zero.
type Resolved struct {
	Status   track.ResolutionStatus
	Artist   string // corrected artist, approximate matches only
	Title    string // corrected title, approximate matches only
	ArtistID uint64
	TitleID  uint64
	Coords   []float64
}

func (Unresolved) outcome() {}
func (Resolved) outcome()   {}

// Resolution converts the record for the coordinate store.
func (r Resolved) Resolution() coordstore.Resolution {
	return coordstore.Resolution{
		Status:     r.Status,
		Artist:     r.Artist,
		Title:      r.Title,
		ArtistDBID: r.ArtistID,
		TitleDBID:  r.TitleID,
		Coords:     r.Coords,
	}
}

// Parse reads a response for a batch of n tracks with dims-dimensional
// coordinates. It always returns n outcomes in batch order.
//
// A malformed numeric field makes only its own track Unresolved; parsing
// continues with the next field. An unreadable status code or a premature
// end of the body leaves that track and every later one Unresolved.
func Parse(r io.Reader, n, dims int) []Outcome {
	p := &parser{sc: bufio.NewScanner(r), dims: dims}
	p.sc.Buffer(make([]byte, 0, 4096), 64*1024)

	out := make([]Outcome, n)
	for i := 0; i < n; i++ {
		o, fatal := p.record()
		out[i] = o
		if fatal {
			for j := i + 1; j < n; j++ {
				out[j] = Unresolved{Err: &ParseError{Line: p.line, State: stateCode.String(), Err: ErrDesynchronized}}
			}
			break
		}
	}
	return out
}

type parser struct {
	sc   *bufio.Scanner
	line int
	dims int
}

func (p *parser) next() (string, bool) {
	if !p.sc.Scan() {
		return "", false
	}
	p.line++
	return strings.TrimRight(p.sc.Text(), "\r"), true
}

func (p *parser) fail(s state, err error) *ParseError {
	return &ParseError{Line: p.line, State: s.String(), Err: err}
}

func (p *parser) eof(s state) *ParseError {
	if err := p.sc.Err(); err != nil {
		return p.fail(s, err)
	}
	return p.fail(s, io.ErrUnexpectedEOF)
}

// record parses one track. fatal means the parser lost its position and
// later records cannot be trusted.
func (p *parser) record() (o Outcome, fatal bool) {
	var (
		res      Resolved
		fieldErr error
		s        = stateCode
	)

	for {
		switch s {
		case stateCode:
			line, ok := p.next()
			if !ok {
				return Unresolved{Err: p.eof(s)}, true
			}
			status, err := track.ParseStatus(strings.TrimSpace(line))
			if err == nil && !status.IsResolved() {
				err = fmt.Errorf("status %s is not a server answer", status)
			}
			if err != nil {
				return Unresolved{Err: p.fail(s, err)}, true
			}
			res.Status = status

			switch status {
			case track.AllFound:
				s = stateArtistID
			case track.ArtistApproximate, track.ArtistTitleApproximate, track.TitleNotFound:
				s = stateArtist
			case track.TitleApproximate:
				s = stateTitle
			case track.ArtistNotFound, track.NothingFound:
				return res, false
			case track.Untested:
				return Unresolved{Err: p.fail(s, errors.New("untested status"))}, true
			}

		case stateArtist:
			line, ok := p.next()
			if !ok {
				return Unresolved{Err: p.eof(s)}, true
			}
			res.Artist = line
			if res.Status == track.ArtistTitleApproximate {
				s = stateTitle
			} else {
				s = stateArtistID
			}

		case stateTitle:
			line, ok := p.next()
			if !ok {
				return Unresolved{Err: p.eof(s)}, true
			}
			res.Title = line
			s = stateArtistID

		case stateArtistID:
			line, ok := p.next()
			if !ok {
				return Unresolved{Err: p.eof(s)}, true
			}
			id, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
			if err != nil && fieldErr == nil {
				fieldErr = p.fail(s, err)
			}
			res.ArtistID = id
			if res.Status == track.TitleNotFound {
				s = stateCoordinate
			} else {
				s = stateTitleID
			}

		case stateTitleID:
			line, ok := p.next()
			if !ok {
				return Unresolved{Err: p.eof(s)}, true
			}
			id, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
			if err != nil && fieldErr == nil {
				fieldErr = p.fail(s, err)
			}
			res.TitleID = id
			s = stateCoordinate

		case stateCoordinate:
			res.Coords = make([]float64, p.dims)
			for k := range res.Coords {
				line, ok := p.next()
				if !ok {
					return Unresolved{Err: p.eof(s)}, true
				}
				v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
				if err != nil && fieldErr == nil {
					fieldErr = p.fail(s, fmt.Errorf("component %d: %w", k, err))
				}
				res.Coords[k] = v
			}
			if fieldErr != nil {
				return Unresolved{Err: fieldErr}, false
			}
			return res, false
		}
	}
}
