// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"math"
	"math/rand"
)

// NextRadius advances the discovery radius: min(scale*r + constant, bound).
// From zero it grows quickly, then flattens out against the bound.
func NextRadius(r, scale, constant, bound float64) float64 {
	return math.Min(scale*r+constant, bound)
}

// RandomDirection returns a unit vector uniformly distributed on the
// (dims-1)-sphere. Each axis is a standard normal drawn with the
// Box-Muller transform; the vector is then normalized.
func RandomDirection(rng *rand.Rand, dims int) []float64 {
	v := make([]float64, dims)
	for {
		var norm float64
		for i := 0; i < dims; i += 2 {
			// 1-Float64 is in (0, 1], keeping the logarithm finite
			u1 := 1 - rng.Float64()
			u2 := rng.Float64()
			r := math.Sqrt(-2 * math.Log(u1))
			v[i] = r * math.Cos(2*math.Pi*u2)
			norm += v[i] * v[i]
			if i+1 < dims {
				v[i+1] = r * math.Sin(2*math.Pi*u2)
				norm += v[i+1] * v[i+1]
			}
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range v {
				v[i] /= norm
			}
			return v
		}
	}
}
