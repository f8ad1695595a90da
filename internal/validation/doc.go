// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

// Package validation wraps github.com/go-playground/validator/v10 with a
// shared validator instance and readable error messages.
//
// It validates the loaded configuration and control API requests. Besides
// the built-in tags it registers:
//
//   - loglevel: a zerolog level name understood by the logging package
//   - command: a shuffle command name such as "toggle_library"
//
// Example:
//
//	type commandRequest struct {
//	    Kind string `validate:"required,command"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr
//	}
package validation
