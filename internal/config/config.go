// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package config

import (
	"math"
	"path/filepath"
	"time"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/library"
	"github.com/tomtom215/soundmap/internal/mpdhost"
	"github.com/tomtom215/soundmap/internal/protocol"
	"github.com/tomtom215/soundmap/internal/shuffle"
)

// Config is the complete application configuration. It is immutable after
// Load.
type Config struct {
	// DataDir holds the map file, the legacy config file and the
	// resolution cache unless their paths are absolute.
	DataDir    string           `koanf:"data_dir" validate:"required"`
	Store      StoreConfig      `koanf:"store"`
	Protocol   ProtocolConfig   `koanf:"protocol"`
	Cache      CacheConfig      `koanf:"cache"`
	Shuffle    ShuffleConfig    `koanf:"shuffle"`
	Library    LibraryConfig    `koanf:"library"`
	MPD        MPDConfig        `koanf:"mpd"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// StoreConfig configures the coordinate store.
type StoreConfig struct {
	Dimensions int     `koanf:"dimensions" validate:"min=1,max=1024"`
	ErrorBound float64 `koanf:"error_bound" validate:"gte=0"`
	LeafSize   int     `koanf:"leaf_size" validate:"min=1"`
	MapFile    string  `koanf:"map_file" validate:"required"`
}

// ProtocolConfig configures the resolution service client.
type ProtocolConfig struct {
	BaseURL            string        `koanf:"base_url" validate:"required,url"`
	DatabaseHost       string        `koanf:"database_host"`
	DatabaseScriptPath string        `koanf:"database_script_path"`
	TracksPerQuery     int           `koanf:"tracks_per_query" validate:"min=1"`
	Timeout            time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxAttempts        int           `koanf:"max_attempts" validate:"min=1"`
	RetryDelay         time.Duration `koanf:"retry_delay" validate:"gte=0"`
	RequestsPerSecond  float64       `koanf:"requests_per_second" validate:"gte=0"`
	BreakerFailures    uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	MaxResponseBytes   int64         `koanf:"max_response_bytes" validate:"min=1"`
	UserAgent          string        `koanf:"user_agent"`
}

// CacheConfig configures the resolution cache.
type CacheConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Dir      string `koanf:"dir"`
	Capacity int    `koanf:"capacity" validate:"min=1"`

	// FreshRescan purges the cache before a listener-requested rescan.
	FreshRescan bool `koanf:"fresh_rescan"`
}

// ShuffleConfig configures the shuffle engine.
type ShuffleConfig struct {
	RemoteScale    float64 `koanf:"remote_scale" validate:"gte=1"`
	RemoteConstant float64 `koanf:"remote_constant" validate:"gte=0"`
	// RemoteBound zero derives sqrt(dimensions)/2.
	RemoteBound        float64 `koanf:"remote_bound" validate:"gte=0"`
	RemoteAnchor       string  `koanf:"remote_anchor" validate:"oneof=origin current"`
	ListenThreshold    float64 `koanf:"listen_threshold" validate:"gt=0,lte=1"`
	MaxWidenings       int     `koanf:"max_widenings" validate:"gte=0,lte=16"`
	MinPlaylistVersion string  `koanf:"min_playlist_version"`
	Seed               int64   `koanf:"seed"`
}

// LibraryConfig selects where library tracks come from.
type LibraryConfig struct {
	// Source is "mpd" (MPD's database) or "filesystem" (tag scan of MusicDir).
	Source     string   `koanf:"source" validate:"oneof=mpd filesystem"`
	MusicDir   string   `koanf:"music_dir" validate:"required_if=Source filesystem"`
	Extensions []string `koanf:"extensions"`
	CheckDrift bool     `koanf:"check_drift"`
}

// MPDConfig configures the MPD host adapter.
type MPDConfig struct {
	Network      string        `koanf:"network" validate:"oneof=tcp unix"`
	Address      string        `koanf:"address" validate:"required"`
	Password     string        `koanf:"password"`
	EndTolerance time.Duration `koanf:"end_tolerance" validate:"gte=0"`
}

// ServerConfig configures the local control API.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Address         string        `koanf:"address" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	// AutoConfirm answers every confirmation prompt with yes. Without a
	// prompt-capable client, prompts are declined.
	AutoConfirm bool `koanf:"auto_confirm"`
}

// SupervisorConfig configures service restarts.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gte=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gte=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"loglevel"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Path resolves name against DataDir unless it is absolute.
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// MapPath is the absolute map file path.
func (c *Config) MapPath() string {
	return c.Path(c.Store.MapFile)
}

// CacheDir is the resolution cache directory. Empty keeps the cache in
// memory.
func (c *Config) CacheDir() string {
	return c.Path(c.Cache.Dir)
}

// StoreConfig converts to the coordinate store's configuration.
func (c *Config) StoreConfig() coordstore.Config {
	return coordstore.Config{
		Dimensions: c.Store.Dimensions,
		ErrorBound: c.Store.ErrorBound,
		LeafSize:   c.Store.LeafSize,
	}
}

// ProtocolConfig converts to the resolution client's configuration. A
// legacy host and script path pair overrides BaseURL.
func (c *Config) ProtocolConfig() protocol.Config {
	p := c.Protocol
	baseURL := p.BaseURL
	if u := protocol.BaseURLFromParts(p.DatabaseHost, p.DatabaseScriptPath); u != "" {
		baseURL = u
	}
	return protocol.Config{
		BaseURL:           baseURL,
		TracksPerQuery:    p.TracksPerQuery,
		Timeout:           p.Timeout,
		MaxAttempts:       p.MaxAttempts,
		RetryDelay:        p.RetryDelay,
		RequestsPerSecond: p.RequestsPerSecond,
		BreakerFailures:   p.BreakerFailures,
		BreakerTimeout:    p.BreakerTimeout,
		MaxResponseBytes:  p.MaxResponseBytes,
		UserAgent:         p.UserAgent,
	}
}

// ShuffleConfig converts to the engine's configuration.
func (c *Config) ShuffleConfig() shuffle.Config {
	s := c.Shuffle
	bound := s.RemoteBound
	if bound == 0 {
		bound = math.Sqrt(float64(c.Store.Dimensions)) / 2
	}
	return shuffle.Config{
		RemoteScale:        s.RemoteScale,
		RemoteConstant:     s.RemoteConstant,
		RemoteBound:        bound,
		RemoteAnchor:       shuffle.Anchor(s.RemoteAnchor),
		ListenThreshold:    s.ListenThreshold,
		MaxWidenings:       s.MaxWidenings,
		MinPlaylistVersion: s.MinPlaylistVersion,
		Seed:               s.Seed,
	}
}

// MPDConfig converts to the MPD adapter's configuration. The filesystem
// music directory doubles as MPD's, so both produce the same paths.
func (c *Config) MPDConfig() mpdhost.Config {
	return mpdhost.Config{
		Network:      c.MPD.Network,
		Address:      c.MPD.Address,
		Password:     c.MPD.Password,
		MusicDir:     c.Library.MusicDir,
		EndTolerance: c.MPD.EndTolerance,
	}
}

// LibraryConfig converts to the library manager's configuration.
func (c *Config) LibraryConfig() library.Config {
	return library.Config{
		MapPath:     c.MapPath(),
		CheckDrift:  c.Library.CheckDrift,
		FreshRescan: c.Cache.Enabled && c.Cache.FreshRescan,
	}
}
