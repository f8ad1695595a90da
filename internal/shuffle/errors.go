// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import "errors"

var (
	// ErrOffline is returned when the resolution service cannot be reached
	// and an operation that needs it is refused.
	ErrOffline = errors.New("resolution service offline")

	// ErrCapability is returned when the host player is too old for a
	// feature. Only that feature is disabled.
	ErrCapability = errors.New("host player lacks required capability")

	// ErrControlsDisabled is returned by mode toggles while a map load or
	// library scan holds the controls.
	ErrControlsDisabled = errors.New("shuffle controls disabled")

	// ErrEmptyStore is returned on activation when no track is known.
	ErrEmptyStore = errors.New("library not scanned")

	// ErrNoMaintainer is returned for a rescan when no maintainer is wired.
	ErrNoMaintainer = errors.New("library maintenance unavailable")
)
