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

	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/jobs"
	"github.com/tomtom215/soundmap/internal/shuffle"
)

// Controls toggles the shuffle controls while the store is rewritten.
type Controls interface {
	SetControlsEnabled(enabled bool)
}

// Connectivity probes the resolution service.
type Connectivity interface {
	Available(ctx context.Context) error
}

// Purger drops cached resolutions so that a scan asks the service again.
type Purger interface {
	Purge() error
}

// Config holds library maintenance settings.
type Config struct {
	// MapPath is the persisted map file.
	MapPath string
	// CheckDrift offers a rescan after loading when the library size
	// differs from the map.
	CheckDrift bool
	// FreshRescan purges the resolution cache before a scan started by
	// StartScan or Rescan. Scans offered while loading keep the cache.
	FreshRescan bool
}

// Manager runs the LoadMap and ScanLibrary jobs. It implements
// shuffle.Maintainer.
type Manager struct {
	cfg      Config
	store    *coordstore.Store
	reader   Reader
	resolver coordstore.Resolver
	probe    Connectivity
	runner   *jobs.Runner
	controls Controls
	ui       shuffle.UI
	purger   Purger
	logger   zerolog.Logger
}

// NewManager creates a manager. probe may be nil, in which case the
// service is assumed reachable.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewManager(cfg Config, store *coordstore.Store, reader Reader, resolver coordstore.Resolver, probe Connectivity,
	runner *jobs.Runner, controls Controls, ui shuffle.UI, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		reader:   reader,
		resolver: resolver,
		probe:    probe,
		runner:   runner,
		controls: controls,
		ui:       ui,
		logger:   logger.With().Str("component", "library").Logger(),
	}
}

// SetPurger sets the cache purged by fresh rescans.
func (m *Manager) SetPurger(p Purger) {
	m.purger = p
}

// StartLoad starts the LoadMap job.
func (m *Manager) StartLoad() error {
	return m.runner.Start(jobs.LoadMap, m.loadMap)
}

// StartScan starts the ScanLibrary job without asking.
func (m *Manager) StartScan() error {
	return m.runner.Start(jobs.ScanLibrary, m.scanLibrary)
}

// Rescan is the listener's rescan command: it refuses when the service is
// unreachable, asks for confirmation, then starts the scan.
func (m *Manager) Rescan(ctx context.Context) error {
	if err := m.checkOnline(ctx); err != nil {
		m.ui.Notify(ctx, "Need a network connection",
			"Scanning the library needs access to the similarity service. Check that the network connection is working.")
		return err
	}

	if !m.ui.Confirm(ctx, "Rescan library?",
		"Scanning may take several minutes for big collections. It runs in the background and you will be told when it is complete. Scan now?") {
		m.logger.Info().Msg("Rescan declined")
		return nil
	}
	return m.StartScan()
}

func (m *Manager) checkOnline(ctx context.Context) error {
	if m.probe == nil {
		return nil
	}
	if err := m.probe.Available(ctx); err != nil {
		return fmt.Errorf("%w: %v", shuffle.ErrOffline, err)
	}
	return nil
}

// loadMap reads the map file. When it is missing or unreadable, or no
// longer matches the library, the listener is offered a scan, which then
// runs within this job.
func (m *Manager) loadMap(ctx context.Context) error {
	m.controls.SetControlsEnabled(false)
	defer m.controls.SetControlsEnabled(true)

	err := m.store.LoadFile(m.cfg.MapPath)
	if err == nil {
		if m.cfg.CheckDrift && m.libraryDrifted(ctx) {
			if m.checkOnline(ctx) == nil && m.ui.Confirm(ctx, "Library changed",
				"The library changed since the last scan. Rescan it now so that new tracks can be suggested?") {
				return m.scan(ctx)
			}
		}
		return nil
	}

	ev := m.logger.Warn().Err(err).Str("path", m.cfg.MapPath)
	var pe *coordstore.MapPersistenceError
	if errors.As(err, &pe) && pe.Line > 0 {
		ev = ev.Int("line", pe.Line)
	}
	ev.Msg("Map not loaded")

	if onlineErr := m.checkOnline(ctx); onlineErr != nil {
		m.logger.Info().Err(onlineErr).Msg("Not offering a scan while offline")
		return err
	}

	question := "To use smart shuffle, the media library must be scanned first. "
	if !errors.Is(err, fs.ErrNotExist) {
		question = "The saved map could not be read. "
	}
	question += "Scanning may take several minutes for big collections. It runs in the background and you will be told when it is complete. Scan now?"
	if !m.ui.Confirm(ctx, "Scan library now?", question) {
		return err
	}
	return m.scan(ctx)
}

func (m *Manager) libraryDrifted(ctx context.Context) bool {
	n, err := m.reader.Count(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Cannot count library tracks")
		return false
	}
	if !m.store.LibraryDrift(n) {
		return false
	}
	m.logger.Info().Int("map_tracks", m.store.Len()).Int("library_tracks", n).Msg("Library changed since last scan")
	return true
}

func (m *Manager) scanLibrary(ctx context.Context) error {
	m.controls.SetControlsEnabled(false)
	defer m.controls.SetControlsEnabled(true)

	if m.cfg.FreshRescan && m.purger != nil {
		if err := m.purger.Purge(); err != nil {
			m.logger.Warn().Err(err).Msg("Resolution cache not purged, scan reuses cached answers")
		} else {
			m.logger.Info().Msg("Resolution cache purged")
		}
	}
	return m.scan(ctx)
}

// scan rebuilds the store from the library, resolves every track and
// persists the map.
func (m *Manager) scan(ctx context.Context) error {
	m.logger.Info().Msg("Scanning library")

	tracks, err := m.reader.Tracks(ctx)
	if err != nil {
		return fmt.Errorf("read library: %w", err)
	}

	m.store.Clear()
	m.store.Reserve(len(tracks))
	for _, t := range tracks {
		m.store.Insert(t)
	}

	if err := m.store.SaveFile(ctx, m.cfg.MapPath, m.resolver); err != nil {
		return fmt.Errorf("save map: %w", err)
	}

	st := m.store.Stats()
	m.logger.Info().
		Int("tracks", st.Tracks).
		Int("pending", st.Pending).
		Int("indexed", st.Indexed).
		Msg("Library scanned")
	m.ui.Notify(ctx, "Scan complete", "The library has been scanned, smart shuffle is ready.")
	return nil
}
