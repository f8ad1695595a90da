// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package coordstore

// pointBuffer is a row-major coordinate array that tracks its used row count
// separately from its capacity. Rows that were never written hold zeros; the
// store only reads a row when the owning track's status implies a coordinate.
type pointBuffer struct {
	dims int
	data []float64
	rows int
}

func newPointBuffer(dims, capacity int) *pointBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &pointBuffer{
		dims: dims,
		data: make([]float64, capacity*dims),
	}
}

func (b *pointBuffer) capacity() int {
	return len(b.data) / b.dims
}

// appendRow adds a zeroed row, doubling the capacity when full.
func (b *pointBuffer) appendRow() int {
	if b.rows == b.capacity() {
		newCap := b.capacity() * 2
		if newCap < 16 {
			newCap = 16
		}
		grown := make([]float64, newCap*b.dims)
		copy(grown, b.data[:b.rows*b.dims])
		b.data = grown
	}
	b.rows++
	return b.rows - 1
}

func (b *pointBuffer) row(i int) []float64 {
	return b.data[i*b.dims : (i+1)*b.dims]
}

func (b *pointBuffer) set(i int, v []float64) {
	copy(b.row(i), v)
}
