// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"math"
	"slices"

	"github.com/tomtom215/soundmap/internal/track"
)

// historyCapacity returns ceil(ln n)+1, the number of recent tracks kept
// out of local suggestions.
func historyCapacity(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log(float64(n)))) + 1
}

// history is the bounded queue of recently started tracks, oldest first.
type history struct {
	ids []track.ID
}

// push appends id and drops the oldest entries beyond capacity. It returns
// the dropped ids that no longer appear in the queue.
func (h *history) push(id track.ID, capacity int) []track.ID {
	h.ids = append(h.ids, id)

	var evicted []track.ID
	for len(h.ids) > capacity {
		old := h.ids[0]
		h.ids = h.ids[1:]
		if !slices.Contains(h.ids, old) {
			evicted = append(evicted, old)
		}
	}
	return evicted
}

func (h *history) len() int {
	return len(h.ids)
}

func (h *history) snapshot() []track.ID {
	return slices.Clone(h.ids)
}
