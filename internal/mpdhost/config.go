// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package mpdhost

import (
	"errors"
	"fmt"
	"time"
)

// Config holds MPD connection settings.
type Config struct {
	// Network is "tcp" or "unix".
	Network  string
	Address  string
	Password string
	// MusicDir is MPD's music directory as seen by this process.
	MusicDir string
	// EndTolerance is how close to the end a stopped song must be to
	// count as finished.
	EndTolerance time.Duration
}

// DefaultConfig returns settings for a local MPD on its standard port.
func DefaultConfig() Config {
	return Config{
		Network:      "tcp",
		Address:      "localhost:6600",
		EndTolerance: 2 * time.Second,
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Network != "tcp" && c.Network != "unix" {
		errs = append(errs, fmt.Errorf("network must be tcp or unix, got %q", c.Network))
	}
	if c.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if c.EndTolerance < 0 {
		errs = append(errs, errors.New("end tolerance must not be negative"))
	}
	return errors.Join(errs...)
}
