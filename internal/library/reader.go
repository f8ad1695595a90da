// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/track"
)

// Reader enumerates the media library.
type Reader interface {
	// Tracks returns every library track with its metadata. Ids are
	// assigned by the store on insertion.
	Tracks(ctx context.Context) ([]track.Track, error)
	// Count returns the number of library tracks.
	Count(ctx context.Context) (int, error)
}

// DefaultExtensions are the audio file extensions FSReader picks up.
var DefaultExtensions = []string{".mp3", ".flac", ".ogg", ".m4a", ".mp4"}

// FSReader reads a music directory tree, taking metadata from audio tags.
// Files without readable tags are titled after their file name.
type FSReader struct {
	root       string
	extensions []string
	logger     zerolog.Logger
}

// NewFSReader creates a reader for root. With no extensions given,
// DefaultExtensions apply.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewFSReader(root string, logger zerolog.Logger, extensions ...string) *FSReader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, len(extensions))
	for i, e := range extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[i] = strings.ToLower(e)
	}
	return &FSReader{
		root:       root,
		extensions: exts,
		logger:     logger.With().Str("component", "library").Logger(),
	}
}

// Tracks walks the tree in lexical order.
func (r *FSReader) Tracks(ctx context.Context) ([]track.Track, error) {
	var tracks []track.Track
	untagged := 0

	err := r.walk(ctx, func(path string) {
		t, tagged := r.readTrack(path)
		if !tagged {
			untagged++
		}
		tracks = append(tracks, t)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("root", r.root).
		Int("tracks", len(tracks)).
		Int("untagged", untagged).
		Msg("Library read")
	return tracks, nil
}

// Count walks the tree without reading tags.
func (r *FSReader) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.walk(ctx, func(string) { n++ })
	return n, err
}

func (r *FSReader) walk(ctx context.Context, fn func(path string)) error {
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.root {
				return err
			}
			r.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !slices.Contains(r.extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		fn(path)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("walk library %s: %w", r.root, err)
	}
	return nil
}

// readTrack reads the tags of path. The length stays unknown; the host
// reports it when the track plays.
func (r *FSReader) readTrack(path string) (track.Track, bool) {
	t := track.New(path)
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, err := os.Open(path) //nolint:gosec // paths come from walking the configured root
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("Cannot open track")
		t.Title = fallback
		return t, false
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("No readable tags")
		t.Title = fallback
		return t, false
	}

	t.Artist = strings.TrimSpace(m.Artist())
	t.Title = strings.TrimSpace(m.Title())
	t.Album = strings.TrimSpace(m.Album())
	t.Genre = strings.TrimSpace(m.Genre())
	t.Year = m.Year()
	if t.Title == "" {
		t.Title = fallback
	}
	return t, true
}
