// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/maps"
)

type legacyKind int

const (
	legacyInt legacyKind = iota
	legacyFloat
	legacyString
)

type legacyKey struct {
	path string
	kind legacyKind
}

// legacyKeys maps the line-oriented file's keys to koanf paths.
var legacyKeys = map[string]legacyKey{
	"DIMENSIONS":           {"store.dimensions", legacyInt},
	"TRACKS_PER_QUERY":     {"protocol.tracks_per_query", legacyInt},
	"ERROR_BOUND":          {"store.error_bound", legacyFloat},
	"REMOTE_SCALE":         {"shuffle.remote_scale", legacyFloat},
	"REMOTE_CONSTANT":      {"shuffle.remote_constant", legacyFloat},
	"REMOTE_BOUND":         {"shuffle.remote_bound", legacyFloat},
	"DATABASE_HOST":        {"protocol.database_host", legacyString},
	"DATABASE_SCRIPT_PATH": {"protocol.database_script_path", legacyString},
}

// LegacyParser is a koanf.Parser for the "KEY value" format. Each line
// holds a key and a value separated by whitespace; anything after the
// value is ignored. Unknown keys and blank lines are skipped. A value that
// does not parse as its key's type is skipped and recorded in Invalid.
type LegacyParser struct {
	Invalid []error
}

// Unmarshal implements koanf.Parser.
func (p *LegacyParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	flat := make(map[string]interface{})
	sc := bufio.NewScanner(bytes.NewReader(b))
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		key, ok := legacyKeys[fields[0]]
		if !ok {
			continue
		}
		if len(fields) < 2 {
			p.Invalid = append(p.Invalid, fmt.Errorf("line %d: %s has no value", line, fields[0]))
			continue
		}

		raw := fields[1]
		var v interface{}
		switch key.kind {
		case legacyInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				p.Invalid = append(p.Invalid, fmt.Errorf("line %d: %s: %w", line, fields[0], err))
				continue
			}
			v = n
		case legacyFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				p.Invalid = append(p.Invalid, fmt.Errorf("line %d: %s: %w", line, fields[0], err))
				continue
			}
			v = f
		case legacyString:
			v = raw
		}
		flat[key.path] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return maps.Unflatten(flat, "."), nil
}

// Marshal implements koanf.Parser, writing the known keys present in m.
func (p *LegacyParser) Marshal(m map[string]interface{}) ([]byte, error) {
	names := make([]string, 0, len(legacyKeys))
	for name := range legacyKeys {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		v := maps.Search(m, strings.Split(legacyKeys[name].path, "."))
		if v == nil {
			continue
		}
		fmt.Fprintf(&buf, "%s %v\n", name, v)
	}
	return buf.Bytes(), nil
}

// ErrConfigRead marks a configuration file that exists in principle but
// could not be read. Defaults and the other layers still apply.
var ErrConfigRead = errors.New("config file not read")
