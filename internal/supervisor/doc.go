// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package supervisor runs the long-lived parts of soundmap under a suture v4
supervision tree.

	root ("soundmap")
	├── engine-layer
	│   └── EngineService (shuffle event loop)
	└── host-layer
	    ├── mpdhost.Watcher (MPD idle subscription)
	    └── HTTPServerService (control API, if enabled)

A dropped MPD connection restarts only the watcher; the engine keeps its
session and picks up events again once the watcher reconnects. Restarts
back off once FailureThreshold failures accumulate, decaying over
FailureDecay seconds.

Supervisor events are logged through sutureslog, fed by the zerolog-backed
slog handler from the logging package.
*/
package supervisor
