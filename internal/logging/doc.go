// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

// Package logging configures the process-wide zerolog logger.
//
// main calls Init once with the configured level and format, then hands
// Logger() to every component by value. Components never log through this
// package directly; they derive a child logger tagged with their component
// name:
//
//	logger := logging.WithComponent("engine")
//	logger.Info().Int("tracks", n).Msg("Library loaded")
//
// HTTP handlers use Ctx(ctx) to pick up the request id stored by the API
// middleware.
//
// SlogHandler bridges log/slog to zerolog for libraries that only speak
// slog, such as the suture supervisor's sutureslog event hook.
package logging
