// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package protocol

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DefaultBaseURL is the public coordinate service.
const DefaultBaseURL = "http://www.musicexplorer.org/services_museek/getCoordinatesInPackagesNoXML.php"

// Config holds resolution client settings.
type Config struct {
	// BaseURL is the service script URL; the batch query string is appended.
	BaseURL string

	// TracksPerQuery is the batch size.
	// Default: 25
	TracksPerQuery int

	// Timeout bounds a single HTTP attempt.
	// Default: 15s
	Timeout time.Duration

	// MaxAttempts is the number of tries per batch, including the first.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the first backoff delay; it doubles per retry.
	// Default: 500ms
	RetryDelay time.Duration

	// RequestsPerSecond paces requests to the service. Zero disables pacing.
	// Default: 4
	RequestsPerSecond float64

	// BreakerFailures is the number of consecutive failed batches that
	// opens the circuit.
	// Default: 5
	BreakerFailures uint32

	// BreakerTimeout is how long the circuit stays open.
	// Default: 30s
	BreakerTimeout time.Duration

	// MaxResponseBytes caps a response body.
	// Default: 4 MiB
	MaxResponseBytes int64

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		TracksPerQuery:    25,
		Timeout:           15 * time.Second,
		MaxAttempts:       3,
		RetryDelay:        500 * time.Millisecond,
		RequestsPerSecond: 4,
		BreakerFailures:   5,
		BreakerTimeout:    30 * time.Second,
		MaxResponseBytes:  4 << 20,
		UserAgent:         "soundmap",
	}
}

// BaseURLFromParts joins a host and a script path into a base URL. Either
// part empty yields "" so the caller keeps its default.
func BaseURLFromParts(host, scriptPath string) string {
	if host == "" || scriptPath == "" {
		return ""
	}
	u := &url.URL{Scheme: "http", Host: host, Path: scriptPath}
	if parsed, err := url.Parse(host); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		u.Scheme = parsed.Scheme
		u.Host = parsed.Host
	}
	if u.Path[0] != '/' {
		u.Path = "/" + u.Path
	}
	return u.String()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL))
	}
	if c.TracksPerQuery < 1 {
		errs = append(errs, fmt.Errorf("tracks_per_query must be positive, got %d", c.TracksPerQuery))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must be non-negative, got %f", c.RequestsPerSecond))
	}
	if c.BreakerFailures < 1 {
		errs = append(errs, errors.New("breaker_failures must be at least 1"))
	}
	if c.MaxResponseBytes < 1 {
		errs = append(errs, fmt.Errorf("max_response_bytes must be positive, got %d", c.MaxResponseBytes))
	}
	return errors.Join(errs...)
}
