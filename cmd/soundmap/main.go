// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

// Package main is the entry point for soundmap, a similarity-driven smart
// shuffle for MPD.
//
// Startup order:
//
//  1. Configuration: defaults, YAML file, legacy museek.conf, SOUNDMAP_*
//     environment (koanf v2)
//  2. Logging: zerolog from the logging section
//  3. Coordinate store, resolution cache (BadgerDB) and service client
//  4. MPD adapters: player, library reader, idle watcher
//  5. Shuffle engine and library manager, wired through the job runner
//  6. Supervisor tree: event loop, watcher and control API
//  7. Map load in the background; controls stay disabled until it ends
//
// The process stops on SIGINT or SIGTERM: the tree shuts down, the engine
// ends its session and waits for the prepare job, then the runner and the
// cache close.
//
// Example:
//
//	export SOUNDMAP_MPD_ADDRESS=localhost:6600
//	export SOUNDMAP_MUSIC_DIR=/srv/music
//	export SOUNDMAP_HTTP_AUTO_CONFIRM=true
//	./soundmap
//	curl -X POST http://127.0.0.1:7780/api/v1/commands/toggle_library
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/api"
	"github.com/tomtom215/soundmap/internal/cache"
	"github.com/tomtom215/soundmap/internal/config"
	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/jobs"
	"github.com/tomtom215/soundmap/internal/library"
	"github.com/tomtom215/soundmap/internal/logging"
	"github.com/tomtom215/soundmap/internal/metrics"
	"github.com/tomtom215/soundmap/internal/mpdhost"
	"github.com/tomtom215/soundmap/internal/protocol"
	"github.com/tomtom215/soundmap/internal/shuffle"
	"github.com/tomtom215/soundmap/internal/supervisor"
	"github.com/tomtom215/soundmap/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// eventBuffer absorbs bursts from the watcher and the API while the engine
// handles a slow event.
const eventBuffer = 64

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	bootLog := logging.Logger()

	cfg, err := config.Load(config.Options{}, bootLog)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	log := logging.Logger()
	metrics.SetAppInfo(version, runtime.Version())

	log.Info().
		Str("version", version).
		Str("data_dir", cfg.DataDir).
		Str("library_source", cfg.Library.Source).
		Str("mpd", cfg.MPD.Address).
		Int("dimensions", cfg.Store.Dimensions).
		Msg("Starting soundmap")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("path", cfg.DataDir).Msg("Failed to create data directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === CORE COMPONENTS ===

	store, err := coordstore.New(cfg.StoreConfig(), logging.WithComponent("coordstore"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create coordinate store")
	}

	client, err := protocol.NewClient(cfg.ProtocolConfig(), nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create resolution client")
	}

	var (
		resCache protocol.Cache
		purger   library.Purger
	)
	if cfg.Cache.Enabled {
		rc, err := cache.OpenResolutionCache(cfg.CacheDir(), cfg.Cache.Capacity, log)
		if err != nil {
			log.Warn().Err(err).Msg("Resolution cache unavailable, every scan queries the service")
		} else {
			defer func() {
				if err := rc.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing resolution cache")
				}
			}()
			resCache = rc
			purger = rc
		}
	}
	resolver := protocol.NewResolver(client, resCache, cfg.Protocol.TracksPerQuery, log)

	runner := jobs.NewRunner(ctx, logging.WithComponent("jobs"))
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error().Err(err).Msg("Background job failed during shutdown")
		}
	}()

	// === HOST ADAPTERS ===

	mpdCfg := cfg.MPDConfig()
	player, err := mpdhost.NewPlayer(mpdCfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MPD player")
	}

	var reader library.Reader
	switch cfg.Library.Source {
	case "filesystem":
		reader = library.NewFSReader(cfg.Library.MusicDir, log, cfg.Library.Extensions...)
	default:
		lib, err := mpdhost.NewLibrary(mpdCfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create MPD library reader")
		}
		reader = lib
	}

	events := make(chan shuffle.Event, eventBuffer)
	watcher, err := mpdhost.NewWatcher(mpdCfg, events, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MPD watcher")
	}

	ui := api.NewUIState(cfg.Server.AutoConfirm, log)

	// === ENGINE ===

	engine, err := shuffle.New(cfg.ShuffleConfig(), store, runner, player, ui, logging.WithComponent("shuffle"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create shuffle engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing shuffle engine")
		}
	}()

	manager := library.NewManager(cfg.LibraryConfig(), store, reader, resolver, client, runner, engine, ui, logging.WithComponent("library"))
	if purger != nil {
		manager.SetPurger(purger)
	}
	engine.SetMaintainer(manager)

	if err := engine.CheckCapability(ctx); err != nil {
		if errors.Is(err, shuffle.ErrCapability) {
			log.Warn().Err(err).Msg("Playlist mode disabled")
		} else {
			log.Warn().Err(err).Msg("Could not check MPD version, playlist mode stays disabled")
		}
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(log), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddEngineService(services.NewEngineService(engine, events, log))
	tree.AddHostService(watcher)

	if cfg.Server.Enabled {
		router := api.NewRouter(api.NewHandler(engine, runner, ui, events, version))
		tree.AddHostService(services.NewHTTPServerService(func() services.HTTPServer {
			return &http.Server{
				Addr:         cfg.Server.Address,
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}
		}, cfg.Server.ShutdownTimeout, log))
	}

	// === START ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	if err := manager.StartLoad(); err != nil {
		log.Error().Err(err).Msg("Failed to start map load")
	}

	var treeErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Context canceled, waiting for supervisor to finish")
		treeErr = <-errCh
	case treeErr = <-errCh:
		cancel()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		log.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	reportUnstopped(tree, log)
	log.Info().Msg("soundmap stopped")
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func reportUnstopped(tree *supervisor.SupervisorTree, log zerolog.Logger) {
	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil {
		return
	}
	for _, svc := range unstopped {
		log.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
}
