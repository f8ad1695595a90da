// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package coordstore

import (
	"container/heap"
	"math"
	"sort"

	"github.com/tomtom215/soundmap/internal/track"
)

// Neighbor is one result of a nearest-neighbor query.
type Neighbor struct {
	ID       track.ID `json:"id"`
	Distance float64  `json:"distance"`
}

// kdTree is an immutable k-d tree over a snapshot of coordinate rows.
// Internal nodes split on the axis of widest spread at the median; leaves
// hold up to leafSize rows. The tree never changes after construction, so
// concurrent searches need no locking.
//
// Search follows the approximate scheme of Arya and Mount: a cell is skipped
// when its incremental lower-bound distance, scaled by (1+eps)^2, already
// exceeds the current k-th best squared distance.
type kdTree struct {
	dims   int
	points []float64  // row-major, len(ids)*dims
	ids    []track.ID // row -> track id
	root   *kdNode
}

type kdNode struct {
	axis        int
	split       float64
	left, right *kdNode
	rows        []int // leaf bucket
}

func (n *kdNode) leaf() bool {
	return n.left == nil && n.right == nil
}

func buildKDTree(dims, leafSize int, ids []track.ID, points []float64) *kdTree {
	t := &kdTree{dims: dims, points: points, ids: ids}
	if len(ids) == 0 {
		return t
	}
	if leafSize < 1 {
		leafSize = 1
	}
	rows := make([]int, len(ids))
	for i := range rows {
		rows[i] = i
	}
	t.root = t.build(rows, leafSize)
	return t
}

func (t *kdTree) size() int {
	return len(t.ids)
}

func (t *kdTree) coord(row, axis int) float64 {
	return t.points[row*t.dims+axis]
}

func (t *kdTree) row(row int) []float64 {
	return t.points[row*t.dims : (row+1)*t.dims]
}

func (t *kdTree) build(rows []int, leafSize int) *kdNode {
	if len(rows) <= leafSize {
		return &kdNode{rows: rows}
	}

	axis, spread := t.widestAxis(rows)
	if spread == 0 {
		// All rows share one point; splitting cannot separate them.
		return &kdNode{rows: rows}
	}

	sort.Slice(rows, func(i, j int) bool {
		return t.coord(rows[i], axis) < t.coord(rows[j], axis)
	})
	mid := len(rows) / 2

	// rows[:mid] <= split <= rows[mid:] along axis
	return &kdNode{
		axis:  axis,
		split: t.coord(rows[mid], axis),
		left:  t.build(rows[:mid], leafSize),
		right: t.build(rows[mid:], leafSize),
	}
}

func (t *kdTree) widestAxis(rows []int) (axis int, spread float64) {
	spread = -1
	for d := 0; d < t.dims; d++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			v := t.coord(r, d)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > spread {
			axis, spread = d, hi-lo
		}
	}
	return axis, spread
}

// search returns up to k neighbors of q ordered by non-decreasing distance.
// Rows at equal distance keep the order in which the traversal met them.
func (t *kdTree) search(q []float64, k int, eps float64) []Neighbor {
	if t.root == nil || k <= 0 {
		return nil
	}
	s := &searcher{
		tree:   t,
		q:      q,
		k:      k,
		maxErr: (1 + eps) * (1 + eps),
		off:    make([]float64, t.dims),
		best:   make(candidateHeap, 0, k),
	}
	s.visit(t.root, 0)

	found := make([]candidate, len(s.best))
	copy(found, s.best)
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].seq < found[j].seq
	})

	out := make([]Neighbor, len(found))
	for i, c := range found {
		out[i] = Neighbor{ID: t.ids[c.row], Distance: math.Sqrt(c.dist)}
	}
	return out
}

type searcher struct {
	tree   *kdTree
	q      []float64
	k      int
	maxErr float64
	off    []float64
	best   candidateHeap
	seq    int
}

func (s *searcher) visit(n *kdNode, rd float64) {
	if n.leaf() {
		for _, r := range n.rows {
			s.offer(r, squaredDistance(s.q, s.tree.row(r)))
		}
		return
	}

	diff := s.q[n.axis] - n.split
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}
	s.visit(near, rd)

	old := s.off[n.axis]
	farRd := rd - old*old + diff*diff
	if len(s.best) == s.k && farRd*s.maxErr > s.best[0].dist {
		return
	}
	s.off[n.axis] = diff
	s.visit(far, farRd)
	s.off[n.axis] = old
}

func (s *searcher) offer(row int, dist float64) {
	s.seq++
	if len(s.best) < s.k {
		heap.Push(&s.best, candidate{row: row, dist: dist, seq: s.seq})
		return
	}
	if dist < s.best[0].dist {
		s.best[0] = candidate{row: row, dist: dist, seq: s.seq}
		heap.Fix(&s.best, 0)
	}
}

type candidate struct {
	row  int
	dist float64 // squared
	seq  int
}

// candidateHeap is a max-heap on dist so the worst kept candidate is on top.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist
	}
	return h[i].seq > h[j].seq
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
