// Package linalg finds linear dependencies among sparse GF(2) vectors.
//
// Each relation becomes a column holding the rows (factor-base slots) where
// its exponent is odd. A dependency is a set of columns whose rows cancel
// pairwise, i.e. whose exponent vectors sum to zero mod 2.
package linalg

import (
	"fmt"
	"math/bits"
	"slices"
)

// Column is one sparse GF(2) vector with a back-reference to the relation
// it came from.
type Column struct {
	Rows []int // strictly increasing
	Orig int
}

// Weight returns the number of nonzero entries.
func (c Column) Weight() int { return len(c.Rows) }

// Matrix is a sparse GF(2) matrix stored by columns.
type Matrix struct {
	nrows int
	cols  []Column

	coreRows, coreCols int
}

// New returns an empty matrix with nrows rows.
func New(nrows int) *Matrix {
	return &Matrix{nrows: nrows}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.nrows }

// Columns returns the number of live columns.
func (m *Matrix) Columns() int { return len(m.cols) }

// AddColumn appends a column. rows must be strictly increasing and below
// Rows(); mod-2 cancellation is the caller's job.
func (m *Matrix) AddColumn(rows []int, orig int) error {
	for i, r := range rows {
		if r < 0 || r >= m.nrows {
			return fmt.Errorf("linalg: row %d out of range [0, %d)", r, m.nrows)
		}
		if i > 0 && rows[i-1] >= r {
			return fmt.Errorf("linalg: rows of column %d not strictly increasing at %d", orig, i)
		}
	}
	m.cols = append(m.cols, Column{Rows: slices.Clone(rows), Orig: orig})
	return nil
}

// PruneSingletons repeatedly removes columns touching a row that no other
// column touches. Such columns can never be part of a dependency. It
// returns the number of removed columns.
func (m *Matrix) PruneSingletons() int {
	counts := make([]int, m.nrows)
	for _, c := range m.cols {
		for _, r := range c.Rows {
			counts[r]++
		}
	}
	removed := 0
	for {
		kept := m.cols[:0]
		changed := false
		for _, c := range m.cols {
			single := false
			for _, r := range c.Rows {
				if counts[r] == 1 {
					single = true
					break
				}
			}
			if single {
				for _, r := range c.Rows {
					counts[r]--
				}
				removed++
				changed = true
				continue
			}
			kept = append(kept, c)
		}
		m.cols = kept
		if !changed {
			return removed
		}
	}
}

// Solve runs structured Gaussian elimination and returns up to maxDeps
// dependencies, each a sorted list of Orig values.
//
// The structured phase works on the sparse columns. It drops columns holding
// a singleton row, merges the two columns of every weight-2 row into one and
// discards the heaviest columns beyond coreSurplus (or maxDeps) more than the
// live rows. The surviving columns form the dense core, which is reduced over
// packed bitsets.
func (m *Matrix) Solve(maxDeps int) [][]int {
	if maxDeps < 1 {
		return nil
	}
	groups := make([]*group, len(m.cols))
	for i, c := range m.cols {
		groups[i] = &group{rows: slices.Clone(c.Rows), origs: []int{c.Orig}}
	}
	groups = m.filter(groups, max(maxDeps, coreSurplus))
	return m.eliminate(groups, maxDeps)
}

// Core returns the dimensions of the dense core reduced by the last Solve.
func (m *Matrix) Core() (rows, cols int) { return m.coreRows, m.coreCols }

const (
	// coreSurplus is the minimum excess of columns over live rows kept by
	// the structured phase.
	coreSurplus = 64

	// maxMergeWeight bounds the weight of a column produced by a merge.
	maxMergeWeight = 64
)

// group is a sum of original columns. The origs of live groups are disjoint.
type group struct {
	rows  []int // strictly increasing
	origs []int
}

func byWeight(a, b *group) int { return len(a.rows) - len(b.rows) }

// filter runs singleton removal and weight-2 merges to a fixed point, then
// trims the heaviest groups above surplus columns more than the live rows,
// and repeats until nothing changes.
func (m *Matrix) filter(groups []*group, surplus int) []*group {
	counts := make([]int, m.nrows)
	for _, g := range groups {
		for _, r := range g.rows {
			counts[r]++
		}
	}
	for {
		var dropped, merged bool
		groups, dropped = dropSingletons(groups, counts)
		groups, merged = mergeDoubletons(groups, counts)
		if dropped || merged {
			continue
		}

		live := 0
		for _, n := range counts {
			if n > 0 {
				live++
			}
		}
		keep := live + surplus
		if len(groups) <= keep {
			return groups
		}
		slices.SortStableFunc(groups, byWeight)
		for _, g := range groups[keep:] {
			for _, r := range g.rows {
				counts[r]--
			}
		}
		groups = groups[:keep]
	}
}

// dropSingletons removes groups touching a row with count 1 until none is
// left. It reports whether anything was removed.
func dropSingletons(groups []*group, counts []int) ([]*group, bool) {
	removed := false
	for {
		kept := groups[:0]
		changed := false
		for _, g := range groups {
			single := false
			for _, r := range g.rows {
				if counts[r] == 1 {
					single = true
					break
				}
			}
			if !single {
				kept = append(kept, g)
				continue
			}
			for _, r := range g.rows {
				counts[r]--
			}
			changed = true
		}
		groups = kept
		if !changed {
			return groups, removed
		}
		removed = true
	}
}

// mergeDoubletons eliminates rows touched by exactly two groups: the lighter
// group is added into the heavier one and removed. Any dependency using one
// of the two uses both, so no dependency is lost.
func mergeDoubletons(groups []*group, counts []int) ([]*group, bool) {
	nrows := len(counts)
	first := make([]int, nrows)
	second := make([]int, nrows)
	for r := range nrows {
		first[r], second[r] = -1, -1
	}
	for i, g := range groups {
		for _, r := range g.rows {
			if counts[r] != 2 {
				continue
			}
			if first[r] < 0 {
				first[r] = i
			} else {
				second[r] = i
			}
		}
	}

	alive := make([]bool, len(groups))
	for i := range alive {
		alive[i] = true
	}
	merged := false
	for r := range nrows {
		a, b := first[r], second[r]
		// Stale entries are skipped; counts is exact, so two live groups
		// holding r while counts[r] == 2 are its only two.
		if counts[r] != 2 || a < 0 || b < 0 || !alive[a] || !alive[b] {
			continue
		}
		ga, gb := groups[a], groups[b]
		if !hasRow(ga.rows, r) || !hasRow(gb.rows, r) || len(ga.rows)+len(gb.rows) > maxMergeWeight+2 {
			continue
		}
		if len(ga.rows) > len(gb.rows) {
			a, ga, gb = b, gb, ga
		}
		for _, x := range ga.rows {
			counts[x]--
		}
		for _, x := range gb.rows {
			counts[x]--
		}
		gb.rows = xorRows(ga.rows, gb.rows)
		gb.origs = append(gb.origs, ga.origs...)
		for _, x := range gb.rows {
			counts[x]++
		}
		alive[a] = false
		merged = true
	}
	if !merged {
		return groups, false
	}
	kept := groups[:0]
	for i, g := range groups {
		if alive[i] {
			kept = append(kept, g)
		}
	}
	return kept, true
}

func hasRow(rows []int, r int) bool {
	_, found := slices.BinarySearch(rows, r)
	return found
}

// xorRows returns the symmetric difference of two increasing row lists.
func xorRows(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// eliminate reduces the core lightest column first. A column is reduced
// against the pool of pivot columns, indexed by pivot (lowest set row):
// while its pivot row is owned by a pool column, the two are XORed. A column
// whose pivot is free joins the pool; a column reduced to zero yields a
// dependency made of the origs recorded in its history.
func (m *Matrix) eliminate(groups []*group, maxDeps int) [][]int {
	slices.SortStableFunc(groups, byWeight)

	index := make([]int, m.nrows)
	for r := range index {
		index[r] = -1
	}
	nrows := 0
	for _, g := range groups {
		for _, r := range g.rows {
			if index[r] < 0 {
				index[r] = nrows
				nrows++
			}
		}
	}
	m.coreRows, m.coreCols = nrows, len(groups)

	rowWords := (nrows + 63) / 64
	histWords := (len(groups) + 63) / 64

	type reduced struct {
		vec  []uint64
		hist []uint64
	}
	pool := make(map[int]reduced, min(len(groups), nrows))
	var deps [][]int

	for k, g := range groups {
		vec := make([]uint64, rowWords)
		for _, r := range g.rows {
			i := index[r]
			vec[i>>6] |= 1 << (uint(i) & 63)
		}
		hist := make([]uint64, histWords)
		hist[k>>6] |= 1 << (uint(k) & 63)

		for {
			pivot := lowestSet(vec)
			if pivot < 0 {
				deps = append(deps, historyToOrig(hist, groups))
				break
			}
			owner, ok := pool[pivot]
			if !ok {
				pool[pivot] = reduced{vec: vec, hist: hist}
				break
			}
			xorInto(vec, owner.vec)
			xorInto(hist, owner.hist)
		}
		if len(deps) >= maxDeps {
			break
		}
	}
	return deps
}

func lowestSet(v []uint64) int {
	for i, w := range v {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

func xorInto(dst, src []uint64) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func historyToOrig(hist []uint64, groups []*group) []int {
	var out []int
	for i, w := range hist {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, groups[i*64+b].origs...)
			w &= w - 1
		}
	}
	slices.Sort(out)
	return out
}
