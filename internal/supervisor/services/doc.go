// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package services adapts soundmap components to suture's Serve pattern.

EngineService runs the shuffle engine's event loop on the shared event
channel. A closed channel ends it for good (suture.ErrDoNotRestart); any
other error lets the supervisor restart it.

HTTPServerService runs the control API. A fresh *http.Server is built for
every run since a server that has been shut down cannot serve again.

Each service implements fmt.Stringer so supervisor events name it.
*/
package services
