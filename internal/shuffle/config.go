// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"errors"
	"fmt"
	"math"
)

// Anchor selects the center of the sphere remote candidates are drawn from.
type Anchor string

const (
	// AnchorOrigin centers remote targets on the origin of the space.
	AnchorOrigin Anchor = "origin"
	// AnchorCurrent centers remote targets on the playing track.
	AnchorCurrent Anchor = "current"
)

// Config holds shuffle engine settings.
type Config struct {
	// RemoteScale multiplies the radius on every track start.
	// Default: 5^(1/16)
	RemoteScale float64

	// RemoteConstant is added to the radius on every track start.
	// Default: 0.3
	RemoteConstant float64

	// RemoteBound caps the radius.
	// Default: sqrt(32)/2
	RemoteBound float64

	// RemoteAnchor is the center of remote targets.
	// Default: origin
	RemoteAnchor Anchor

	// ListenThreshold is the listened fraction at or above which the local
	// candidate continues playback.
	// Default: 0.5
	ListenThreshold float64

	// MaxWidenings is how often the neighbor window doubles when every
	// local neighbor was played already.
	// Default: 4
	MaxWidenings int

	// MinPlaylistVersion is the lowest host version that supports playlist
	// mode. Empty disables the check.
	// Default: 0.20.0
	MinPlaylistVersion string

	// Seed seeds the per-session random source. Zero seeds from the clock.
	Seed int64
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		RemoteScale:        math.Pow(5, 1.0/16.0),
		RemoteConstant:     0.3,
		RemoteBound:        math.Sqrt(32) / 2,
		RemoteAnchor:       AnchorOrigin,
		ListenThreshold:    0.5,
		MaxWidenings:       4,
		MinPlaylistVersion: "0.20.0",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.RemoteScale < 1 {
		errs = append(errs, fmt.Errorf("remote_scale must be at least 1, got %f", c.RemoteScale))
	}
	if c.RemoteConstant < 0 {
		errs = append(errs, fmt.Errorf("remote_constant must be non-negative, got %f", c.RemoteConstant))
	}
	if c.RemoteBound <= 0 {
		errs = append(errs, fmt.Errorf("remote_bound must be positive, got %f", c.RemoteBound))
	}
	if c.RemoteAnchor != AnchorOrigin && c.RemoteAnchor != AnchorCurrent {
		errs = append(errs, fmt.Errorf("remote_anchor must be %q or %q, got %q", AnchorOrigin, AnchorCurrent, c.RemoteAnchor))
	}
	if c.ListenThreshold <= 0 || c.ListenThreshold > 1 {
		errs = append(errs, fmt.Errorf("listen_threshold must be in (0, 1], got %f", c.ListenThreshold))
	}
	if c.MaxWidenings < 0 {
		errs = append(errs, fmt.Errorf("max_widenings must be non-negative, got %d", c.MaxWidenings))
	}
	return errors.Join(errs...)
}
