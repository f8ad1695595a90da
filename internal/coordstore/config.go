// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package coordstore

import (
	"errors"
	"fmt"
)

// Config holds coordinate store settings.
type Config struct {
	// Dimensions is the length of every coordinate vector.
	// Default: 32
	Dimensions int `json:"dimensions"`

	// ErrorBound is the approximation factor of nearest-neighbor search.
	// A returned neighbor is at most (1+ErrorBound) times farther than the
	// true k-th neighbor. Zero gives exact search.
	// Default: 0
	ErrorBound float64 `json:"error_bound"`

	// LeafSize is the maximum number of points in a kd-tree bucket.
	// Default: 8
	LeafSize int `json:"leaf_size"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Dimensions: 32,
		ErrorBound: 0,
		LeafSize:   8,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Dimensions < 1 {
		errs = append(errs, fmt.Errorf("dimensions must be positive, got %d", c.Dimensions))
	}
	if c.ErrorBound < 0 {
		errs = append(errs, fmt.Errorf("error_bound must be non-negative, got %f", c.ErrorBound))
	}
	if c.LeafSize < 1 {
		errs = append(errs, fmt.Errorf("leaf_size must be positive, got %d", c.LeafSize))
	}
	return errors.Join(errs...)
}
