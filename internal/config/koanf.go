// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/library"
	"github.com/tomtom215/soundmap/internal/mpdhost"
	"github.com/tomtom215/soundmap/internal/protocol"
	"github.com/tomtom215/soundmap/internal/shuffle"
	"github.com/tomtom215/soundmap/internal/validation"
)

// DefaultConfigPaths are searched in order when no file is given.
var DefaultConfigPaths = []string{
	"soundmap.yaml",
	"soundmap.yml",
	"/etc/soundmap/soundmap.yaml",
}

const (
	// ConfigPathEnvVar overrides the YAML file path.
	ConfigPathEnvVar = "SOUNDMAP_CONFIG"

	// EnvPrefix prefixes every mapped environment variable.
	EnvPrefix = "SOUNDMAP_"

	// LegacyFileName is the line-oriented file read from the data directory.
	LegacyFileName = "museek.conf"
)

// Options adjust where Load looks.
type Options struct {
	// ConfigFile is an explicit YAML file. It must exist.
	ConfigFile string
	// DataDir overrides every other data_dir source.
	DataDir string
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".soundmap"
	}
	return filepath.Join(home, ".soundmap")
}

func defaultConfig() *Config {
	st := coordstore.DefaultConfig()
	p := protocol.DefaultConfig()
	sh := shuffle.DefaultConfig()
	m := mpdhost.DefaultConfig()

	return &Config{
		DataDir: defaultDataDir(),
		Store: StoreConfig{
			Dimensions: st.Dimensions,
			ErrorBound: st.ErrorBound,
			LeafSize:   st.LeafSize,
			MapFile:    "map.txt",
		},
		Protocol: ProtocolConfig{
			BaseURL:           p.BaseURL,
			TracksPerQuery:    p.TracksPerQuery,
			Timeout:           p.Timeout,
			MaxAttempts:       p.MaxAttempts,
			RetryDelay:        p.RetryDelay,
			RequestsPerSecond: p.RequestsPerSecond,
			BreakerFailures:   p.BreakerFailures,
			BreakerTimeout:    p.BreakerTimeout,
			MaxResponseBytes:  p.MaxResponseBytes,
			UserAgent:         p.UserAgent,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Dir:      "rescache",
			Capacity: 10000,
		},
		Shuffle: ShuffleConfig{
			RemoteScale:        sh.RemoteScale,
			RemoteConstant:     sh.RemoteConstant,
			RemoteAnchor:       string(sh.RemoteAnchor),
			ListenThreshold:    sh.ListenThreshold,
			MaxWidenings:       sh.MaxWidenings,
			MinPlaylistVersion: sh.MinPlaylistVersion,
		},
		Library: LibraryConfig{
			Source:     "mpd",
			Extensions: append([]string(nil), library.DefaultExtensions...),
			CheckDrift: true,
		},
		MPD: MPDConfig{
			Network:      m.Network,
			Address:      m.Address,
			EndTolerance: m.EndTolerance,
		},
		Server: ServerConfig{
			Enabled:         true,
			Address:         "127.0.0.1:7780",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration from all layers and validates it. Problems
// with the legacy file are logged and do not fail the load.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Load(opts Options, logger zerolog.Logger) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := findConfigFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		logger.Debug().Str("path", configPath).Msg("Loaded config file")
	}

	// The environment is loaded separately first so that SOUNDMAP_DATA_DIR
	// can locate the legacy file that it then overrides.
	envK := koanf.New(".")
	if err := envK.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	dataDir := k.String("data_dir")
	if d := envK.String("data_dir"); d != "" {
		dataDir = d
	}
	if opts.DataDir != "" {
		dataDir = opts.DataDir
	}

	if err := loadLegacy(k, filepath.Join(dataDir, LegacyFileName)); err != nil {
		logger.Warn().Err(err).Msg("Legacy config not applied, using other settings")
	}

	if err := k.Merge(envK); err != nil {
		return nil, fmt.Errorf("failed to merge environment variables: %w", err)
	}
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if opts.DataDir != "" {
		if err := k.Set("data_dir", opts.DataDir); err != nil {
			return nil, fmt.Errorf("failed to set data_dir: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadLegacy merges the legacy file into k. Every failure wraps
// ErrConfigRead; values that did not parse are reported while the rest
// still apply.
func loadLegacy(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", ErrConfigRead, path)
	}

	p := &LegacyParser{}
	if err := k.Load(file.Provider(path), p); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigRead, path, err)
	}
	if len(p.Invalid) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrConfigRead, path, errors.Join(p.Invalid...))
	}
	return nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// sliceConfigPaths hold comma-separated lists when set from the
// environment.
var sliceConfigPaths = []string{
	"library.extensions",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps SOUNDMAP_-prefixed variables, lowercased and without
// the prefix, to koanf paths.
var envMappings = map[string]string{
	"data_dir": "data_dir",

	"dimensions":  "store.dimensions",
	"error_bound": "store.error_bound",
	"leaf_size":   "store.leaf_size",
	"map_file":    "store.map_file",

	"base_url":             "protocol.base_url",
	"database_host":        "protocol.database_host",
	"database_script_path": "protocol.database_script_path",
	"tracks_per_query":     "protocol.tracks_per_query",
	"request_timeout":      "protocol.timeout",
	"max_attempts":         "protocol.max_attempts",
	"retry_delay":          "protocol.retry_delay",
	"requests_per_second":  "protocol.requests_per_second",
	"breaker_failures":     "protocol.breaker_failures",
	"breaker_timeout":      "protocol.breaker_timeout",
	"user_agent":           "protocol.user_agent",

	"cache_enabled":      "cache.enabled",
	"cache_dir":          "cache.dir",
	"cache_capacity":     "cache.capacity",
	"cache_fresh_rescan": "cache.fresh_rescan",

	"remote_scale":         "shuffle.remote_scale",
	"remote_constant":      "shuffle.remote_constant",
	"remote_bound":         "shuffle.remote_bound",
	"remote_anchor":        "shuffle.remote_anchor",
	"listen_threshold":     "shuffle.listen_threshold",
	"max_widenings":        "shuffle.max_widenings",
	"min_playlist_version": "shuffle.min_playlist_version",
	"seed":                 "shuffle.seed",

	"library_source":     "library.source",
	"music_dir":          "library.music_dir",
	"library_extensions": "library.extensions",
	"check_drift":        "library.check_drift",

	"mpd_network":       "mpd.network",
	"mpd_address":       "mpd.address",
	"mpd_password":      "mpd.password",
	"mpd_end_tolerance": "mpd.end_tolerance",

	"http_enabled":      "server.enabled",
	"http_address":      "server.address",
	"http_auto_confirm": "server.auto_confirm",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps SOUNDMAP_MPD_ADDRESS to mpd.address. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return envMappings[key]
}

// Validate runs the struct tags and the cross-field checks.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	p := c.ProtocolConfig()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	s := c.ShuffleConfig()
	if err := s.Validate(); err != nil {
		return fmt.Errorf("shuffle: %w", err)
	}
	return nil
}
