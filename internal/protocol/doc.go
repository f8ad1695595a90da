// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package protocol resolves tracks into similarity coordinates through the
remote coordinate service.

# Wire Format

A request is an HTTP GET on the service script with one artist[i] and
title[i] parameter pair per track, percent-encoded by Encode. The response
is plain text, one value per line, one record per track in request order:

	code                 resolution status (4 is read as 3)
	[artist]             corrected artist, approximate statuses only
	[title]              corrected title, approximate statuses only
	artistId             unless artist or nothing was found
	[titleId]            unless the title was not found
	c1 .. cD             coordinate, one component per line

Records for statuses without a coordinate end after the code line.

# Components

  - Parse: the per-track state machine, returning a Resolved or Unresolved
    outcome for every track of a batch
  - Client: HTTP transport with per-attempt timeout, retry with exponential
    backoff, request pacing and a circuit breaker
  - Resolver: batches pending tracks, consults the resolution cache, applies
    outcomes to a coordstore.Store and rebuilds its index once

# Error Handling

A malformed field leaves its track pending for the next pass; the rest of
the batch is applied. A failed batch leaves its tracks pending and later
batches still run.
*/
package protocol
