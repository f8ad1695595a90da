// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package cache provides the caches used during coordinate resolution.

# LRU Cache

LRUCache is a generic, thread-safe least-recently-used cache with optional
TTL. Entries are expired lazily on Get.

	c := cache.NewLRUCache[int](1000, 5*time.Minute)
	c.Add("key", 42)
	v, ok := c.Get("key")

# Resolution Cache

ResolutionCache remembers every definitive answer of the resolution service,
keyed by the normalized (artist, title) pair of the track. It is consulted
before a batch is sent, so a rescan of an unchanged library only queries the
service for tracks it has never seen.

Entries are stored in BadgerDB under the "res:" prefix as JSON, with a
bounded LRU in front of the database:

	rc, err := cache.OpenResolutionCache("/var/lib/soundmap/cache", 4096, logger)
	if err != nil {
	    return err
	}
	defer rc.Close()

	resolver := protocol.NewResolver(client, rc, 25, logger)

An empty directory opens an in-memory database, which is what the tests use.

# Thread Safety

Both caches are safe for concurrent use.
*/
package cache
