// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

/*
Package config loads soundmap's configuration with koanf v2.

Sources are layered, lowest precedence first:

 1. Built-in defaults (defaultConfig)
 2. YAML file: $SOUNDMAP_CONFIG, ./soundmap.yaml or /etc/soundmap/soundmap.yaml
 3. Legacy file museek.conf in the data directory, one "KEY value" pair per
    line (see LegacyParser)
 4. Environment variables with the SOUNDMAP_ prefix (see envMappings)

A missing YAML file is normal. A missing or unreadable legacy file is
logged as ErrConfigRead and the other layers apply.

# Example YAML

	data_dir: /var/lib/soundmap
	store:
	  dimensions: 32
	shuffle:
	  remote_anchor: current
	library:
	  source: filesystem
	  music_dir: /srv/music
	server:
	  address: 127.0.0.1:7780

# Legacy Keys

	DIMENSIONS            store.dimensions
	TRACKS_PER_QUERY      protocol.tracks_per_query
	ERROR_BOUND           store.error_bound
	REMOTE_SCALE          shuffle.remote_scale
	REMOTE_CONSTANT       shuffle.remote_constant
	REMOTE_BOUND          shuffle.remote_bound
	DATABASE_HOST         protocol.database_host
	DATABASE_SCRIPT_PATH  protocol.database_script_path

When both DATABASE_HOST and DATABASE_SCRIPT_PATH are set they replace the
resolution service base URL.
*/
package config
