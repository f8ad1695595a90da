// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/track"
)

// Key prefix for BadgerDB storage
const resolutionKeyPrefix = "res:"

// resolutionEntry is the persisted form of a resolution.
type resolutionEntry struct {
	Status   int       `json:"status"`
	Artist   string    `json:"artist,omitempty"`
	Title    string    `json:"title,omitempty"`
	ArtistID uint64    `json:"artist_id,omitempty"`
	TitleID  uint64    `json:"title_id,omitempty"`
	Coords   []float64 `json:"coords,omitempty"`
}

// ResolutionCache remembers definitive resolutions by track key across
// rescans and restarts: a bounded in-memory LRU in front of BadgerDB.
type ResolutionCache struct {
	db     *badger.DB
	owned  bool
	lru    *LRUCache[coordstore.Resolution]
	logger zerolog.Logger
}

// OpenResolutionCache opens (or creates) a BadgerDB directory. An empty dir
// opens an in-memory database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func OpenResolutionCache(dir string, capacity int, logger zerolog.Logger) (*ResolutionCache, error) {
	logger = logger.With().Str("component", "rescache").Logger()

	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger: logger})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open resolution cache %q: %w", dir, err)
	}

	c := NewResolutionCache(db, capacity, logger)
	c.owned = true
	return c, nil
}

// NewResolutionCache wraps an open database. The caller keeps ownership of
// db; Close does not close it.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewResolutionCache(db *badger.DB, capacity int, logger zerolog.Logger) *ResolutionCache {
	return &ResolutionCache{
		db:     db,
		lru:    NewLRUCache[coordstore.Resolution](capacity, 0),
		logger: logger,
	}
}

// Get returns the cached resolution for key.
func (c *ResolutionCache) Get(key string) (coordstore.Resolution, bool) {
	if r, ok := c.lru.Get(key); ok {
		return r, true
	}

	var entry resolutionEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(resolutionKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn().Err(err).Msg("Resolution cache read failed")
		}
		return coordstore.Resolution{}, false
	}

	status, err := track.StatusFromCode(entry.Status)
	if err != nil || !status.IsResolved() {
		c.logger.Warn().Int("status", entry.Status).Msg("Ignoring corrupt resolution cache entry")
		return coordstore.Resolution{}, false
	}

	r := coordstore.Resolution{
		Status:     status,
		Artist:     entry.Artist,
		Title:      entry.Title,
		ArtistDBID: entry.ArtistID,
		TitleDBID:  entry.TitleID,
		Coords:     entry.Coords,
	}
	c.lru.Add(key, r)
	return r, true
}

// Put stores a definitive resolution. Untested resolutions are ignored.
func (c *ResolutionCache) Put(key string, r coordstore.Resolution) error {
	if !r.Status.IsResolved() {
		return nil
	}

	data, err := json.Marshal(resolutionEntry{
		Status:   r.Status.Code(),
		Artist:   r.Artist,
		Title:    r.Title,
		ArtistID: r.ArtistDBID,
		TitleID:  r.TitleDBID,
		Coords:   r.Coords,
	})
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}

	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(resolutionKeyPrefix+key), data)
	}); err != nil {
		return fmt.Errorf("store resolution: %w", err)
	}

	c.lru.Add(key, r)
	return nil
}

// Purge drops every cached resolution.
func (c *ResolutionCache) Purge() error {
	c.lru.Clear()
	return c.db.DropPrefix([]byte(resolutionKeyPrefix))
}

// Close closes the database if the cache opened it.
func (c *ResolutionCache) Close() error {
	if !c.owned {
		return nil
	}
	return c.db.Close()
}

// badgerLogger routes BadgerDB's printf-style logging into zerolog.
// Badger's info output is chatty, so it is logged at debug level.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}
