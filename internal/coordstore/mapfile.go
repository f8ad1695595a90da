// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package coordstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tomtom215/soundmap/internal/track"
)

// pathSpaceEscape replaces literal spaces in persisted paths so that the
// path stays a single whitespace-separated field.
const pathSpaceEscape = "|"

// maxMapLine bounds a single map line (32 coordinates plus a long path fit
// comfortably).
const maxMapLine = 1 << 20

// Save writes the store in map file format:
//
//	<count>
//	<status> [<artistDbId>] [<titleDbId>] <length> [<c1> ... <cD>] <path>
//
// Ids and coordinates are present according to the status predicates in
// package track. Untested tracks carry neither. Save does not resolve
// pending tracks; use SaveFile for that.
func (s *Store) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", len(s.tracks)); err != nil {
		return &MapPersistenceError{Op: "save", Err: err}
	}

	var line []byte
	for i := range s.tracks {
		t := &s.tracks[i]
		line = line[:0]
		line = strconv.AppendInt(line, int64(t.Status.Code()), 10)
		if t.Status.HasArtistID() {
			line = append(line, ' ')
			line = strconv.AppendUint(line, t.ArtistDBID, 10)
		}
		if t.Status.HasTitleID() {
			line = append(line, ' ')
			line = strconv.AppendUint(line, t.TitleDBID, 10)
		}
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(t.Length), 10)
		if t.HasCoordinate() {
			for _, c := range s.coords.row(i) {
				line = append(line, ' ')
				line = strconv.AppendFloat(line, c, 'g', -1, 64)
			}
		}
		if t.Path != "" {
			line = append(line, ' ')
			line = append(line, strings.ReplaceAll(t.Path, " ", pathSpaceEscape)...)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return &MapPersistenceError{Op: "save", Line: i + 2, Err: err}
		}
	}

	if err := bw.Flush(); err != nil {
		return &MapPersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Load replaces the store contents with a map read from r and rebuilds the
// spatial index. Untested tracks are queued as pending. On error the store
// is left unchanged.
func (s *Store) Load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxMapLine)

	if !sc.Scan() {
		err := sc.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return &MapPersistenceError{Op: "load", Line: 1, Err: err}
	}
	total, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || total < 0 {
		return &MapPersistenceError{Op: "load", Line: 1, Err: fmt.Errorf("invalid track count %q", sc.Text())}
	}

	dims := s.cfg.Dimensions
	tracks := make([]track.Track, 0, total)
	coords := newPointBuffer(dims, total)
	pending := make(map[track.ID]struct{})
	byPath := make(map[string]track.ID, total)

	for i := 0; i < total; i++ {
		lineNo := i + 2
		if !sc.Scan() {
			err := sc.Err()
			if err == nil {
				err = fmt.Errorf("expected %d tracks, found %d: %w", total, i, io.ErrUnexpectedEOF)
			}
			return &MapPersistenceError{Op: "load", Line: lineNo, Err: err}
		}

		id := track.ID(i)
		row := coords.appendRow()
		t, err := parseMapLine(sc.Text(), coords.row(row))
		if err != nil {
			return &MapPersistenceError{Op: "load", Line: lineNo, Err: err}
		}
		t.ID = id
		tracks = append(tracks, t)
		if !t.Status.IsResolved() {
			pending[id] = struct{}{}
		}
		if t.Path != "" {
			byPath[t.Path] = id
		}
	}
	if err := sc.Err(); err != nil {
		return &MapPersistenceError{Op: "load", Err: err}
	}

	s.mu.Lock()
	s.tracks = tracks
	s.coords = coords
	s.pending = pending
	s.byPath = byPath
	s.index = nil
	s.mu.Unlock()

	s.Rebuild()
	s.logger.Info().Int("tracks", total).Int("pending", len(pending)).Msg("Map loaded")
	return nil
}

// parseMapLine decodes one track line, writing coordinates into coord.
func parseMapLine(line string, coord []float64) (track.Track, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return track.Track{}, errors.New("empty line")
	}

	status, err := track.ParseStatus(fields[0])
	if err != nil {
		return track.Track{}, err
	}

	want := 2 // status, length
	if status.HasArtistID() {
		want++
	}
	if status.HasTitleID() {
		want++
	}
	if status.HasCoordinate() {
		want += len(coord)
	}
	// The path is optional: a track without a path is written without one.
	if len(fields) != want && len(fields) != want+1 {
		return track.Track{}, fmt.Errorf("status %s expects %d fields, got %d", status, want+1, len(fields))
	}

	t := track.Track{Status: status}
	pos := 1
	if status.HasArtistID() {
		if t.ArtistDBID, err = strconv.ParseUint(fields[pos], 10, 64); err != nil {
			return track.Track{}, fmt.Errorf("artist id: %w", err)
		}
		pos++
	}
	if status.HasTitleID() {
		if t.TitleDBID, err = strconv.ParseUint(fields[pos], 10, 64); err != nil {
			return track.Track{}, fmt.Errorf("title id: %w", err)
		}
		pos++
	}
	if t.Length, err = strconv.Atoi(fields[pos]); err != nil {
		return track.Track{}, fmt.Errorf("length: %w", err)
	}
	pos++
	if status.HasCoordinate() {
		for k := range coord {
			if coord[k], err = strconv.ParseFloat(fields[pos], 64); err != nil {
				return track.Track{}, fmt.Errorf("coordinate %d: %w", k, err)
			}
			pos++
		}
	}
	if pos < len(fields) {
		t.Path = track.NormalizePath(strings.ReplaceAll(fields[pos], pathSpaceEscape, " "))
	}
	return t, nil
}

// LoadFile loads the map at path. A missing file yields a
// *MapPersistenceError wrapping fs.ErrNotExist.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &MapPersistenceError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	if err := s.Load(f); err != nil {
		var mpe *MapPersistenceError
		if errors.As(err, &mpe) {
			mpe.Path = path
			return mpe
		}
		return &MapPersistenceError{Op: "load", Path: path, Err: err}
	}
	return nil
}

// SaveFile resolves every pending track through resolver (when non-nil),
// then writes the map atomically to path. A failed resolution is logged and
// the partial map is written anyway; pending tracks persist as untested.
func (s *Store) SaveFile(ctx context.Context, path string, resolver Resolver) error {
	if resolver != nil {
		if missing := s.Missing(); len(missing) > 0 {
			if err := resolver.Resolve(ctx, s, missing); err != nil {
				s.logger.Warn().Err(err).Int("pending", len(missing)).Msg("Resolution before save incomplete, saving partial map")
			}
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &MapPersistenceError{Op: "save", Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".map-*.tmp")
	if err != nil {
		return &MapPersistenceError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := s.Save(tmp); err != nil {
		_ = tmp.Close()
		var mpe *MapPersistenceError
		if errors.As(err, &mpe) {
			mpe.Path = path
			return mpe
		}
		return &MapPersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &MapPersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &MapPersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &MapPersistenceError{Op: "save", Path: path, Err: err}
	}

	s.logger.Info().Str("path", path).Int("tracks", s.Len()).Msg("Map saved")
	return nil
}
