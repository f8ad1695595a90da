// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package protocol

import (
	"strconv"
	"strings"
)

const lowerHex = "0123456789abcdef"

// Query is one (artist, title) pair of a batch request.
type Query struct {
	Artist string
	Title  string
}

// Encode percent-encodes s byte by byte. ASCII letters, digits and the
// characters ~!*()' are kept; everything else becomes %xx in lowercase hex.
// The service expects exactly this form, which differs from both
// url.QueryEscape and url.PathEscape.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(lowerHex[c>>4])
		b.WriteByte(lowerHex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '~', '!', '*', '(', ')', '\'':
		return true
	}
	return false
}

// BuildQuery renders a batch as a raw query string, including the leading
// '?': artist[0]=..&title[0]=..&artist[1]=.. in batch order. Brackets in
// parameter names are sent literally.
func BuildQuery(batch []Query) string {
	if len(batch) == 0 {
		return ""
	}
	var b strings.Builder
	for i, q := range batch {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		idx := strconv.Itoa(i)
		b.WriteString("artist[")
		b.WriteString(idx)
		b.WriteString("]=")
		b.WriteString(Encode(q.Artist))
		b.WriteString("&title[")
		b.WriteString(idx)
		b.WriteString("]=")
		b.WriteString(Encode(q.Title))
	}
	return b.String()
}
