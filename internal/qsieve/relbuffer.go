package qsieve

import (
	"math/big"
	"slices"
	"sync"
)

// RelationCounts summarizes a relation buffer after its last merge pass.
type RelationCounts struct {
	Full       int `json:"full"`
	Partial    int `json:"partial"`
	Combined   int `json:"combined"`
	Duplicates int `json:"duplicates"`
}

// Usable returns the number of matrix columns the buffer can provide.
func (c RelationCounts) Usable() int { return c.Full + c.Combined }

// RelationBuffer collects relations from every worker. Appends go to an
// unsorted pending list; every qsortRels appends the list is sorted and
// merged into the sorted store, dropping duplicates. The store is ordered by
// large prime then |Y|, so partials sharing a large prime are adjacent.
//
// RelationBuffer is safe for concurrent use.
type RelationBuffer struct {
	mu        sync.Mutex
	n         *big.Int
	qsortRels int
	target    int

	pending     []Relation
	pendingFull int
	store       []Relation
	counts      RelationCounts
}

// NewRelationBuffer creates a buffer that is ready once target usable
// relations are stored.
func NewRelationBuffer(n *big.Int, qsortRels, target int) *RelationBuffer {
	return &RelationBuffer{n: n, qsortRels: max(qsortRels, 1), target: target}
}

// Target returns the number of usable relations collection aims for.
func (b *RelationBuffer) Target() int { return b.target }

// Add appends a full or partial relation and runs a merge pass every
// qsortRels relations.
func (b *RelationBuffer) Add(rel Relation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, rel)
	if rel.IsFull() {
		b.pendingFull++
	}
	if len(b.pending) >= b.qsortRels {
		b.mergeLocked()
	}
}

// Ready reports whether enough usable relations are stored. When the
// pending fulls could close the gap it merges first.
func (b *RelationBuffer) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counts.Usable() >= b.target {
		return true
	}
	if b.counts.Usable()+b.pendingFull >= b.target {
		b.mergeLocked()
	}
	return b.counts.Usable() >= b.target
}

// Progress returns usable/target in [0, 1] as of the last merge.
func (b *RelationBuffer) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.target == 0 {
		return 1
	}
	return min(float64(b.counts.Usable())/float64(b.target), 1)
}

// Merge forces a merge pass and returns the resulting counts.
func (b *RelationBuffer) Merge() RelationCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mergeLocked()
	return b.counts
}

// Counts returns the counts as of the last merge pass.
func (b *RelationBuffer) Counts() RelationCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// mergeLocked sorts the pending relations, merges them into the store in
// one linear pass and recounts usable relations.
func (b *RelationBuffer) mergeLocked() {
	if len(b.pending) == 0 {
		return
	}
	slices.SortFunc(b.pending, compareRelations)

	merged := make([]Relation, 0, len(b.store)+len(b.pending))
	i, j := 0, 0
	push := func(r Relation) {
		if len(merged) > 0 && compareRelations(merged[len(merged)-1], r) == 0 {
			b.counts.Duplicates++
			return
		}
		merged = append(merged, r)
	}
	for i < len(b.store) && j < len(b.pending) {
		if compareRelations(b.store[i], b.pending[j]) <= 0 {
			push(b.store[i])
			i++
		} else {
			push(b.pending[j])
			j++
		}
	}
	for ; i < len(b.store); i++ {
		push(b.store[i])
	}
	for ; j < len(b.pending); j++ {
		push(b.pending[j])
	}
	b.store = merged
	b.pending = b.pending[:0]
	b.pendingFull = 0

	full, partial, combined := 0, 0, 0
	for k := 0; k < len(b.store); {
		l := b.store[k].LargePrime
		m := k
		for m < len(b.store) && b.store[m].LargePrime == l {
			m++
		}
		if l == 1 {
			full += m - k
		} else {
			partial += m - k
			combined += m - k - 1
		}
		k = m
	}
	b.counts.Full, b.counts.Partial, b.counts.Combined = full, partial, combined
}

// Relations flushes pending relations and returns the usable ones: every
// full relation, then for each large prime shared by m partials the m−1
// products of the first partial with each of the others.
func (b *RelationBuffer) Relations() []Relation {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mergeLocked()

	out := make([]Relation, 0, b.counts.Usable())
	for k := 0; k < len(b.store); {
		l := b.store[k].LargePrime
		m := k
		for m < len(b.store) && b.store[m].LargePrime == l {
			m++
		}
		if l == 1 {
			out = append(out, b.store[k:m]...)
		} else {
			for o := k + 1; o < m; o++ {
				out = append(out, combineRelations(b.store[k], b.store[o], b.n))
			}
		}
		k = m
	}
	return out
}

// compareRelations orders by large prime, then |Y|.
func compareRelations(a, b Relation) int {
	switch {
	case a.LargePrime < b.LargePrime:
		return -1
	case a.LargePrime > b.LargePrime:
		return 1
	}
	return a.Y.CmpAbs(b.Y)
}

// combineRelations multiplies two partial relations with the same large
// prime into one relation whose right-hand side is L² times a smooth part.
func combineRelations(a, b Relation, n *big.Int) Relation {
	y := new(big.Int).Mul(a.Y, b.Y)
	y.Mod(y, n)

	factors := make([]Factor, 0, len(a.Factors)+len(b.Factors))
	i, j := 0, 0
	for i < len(a.Factors) || j < len(b.Factors) {
		switch {
		case j == len(b.Factors) || (i < len(a.Factors) && a.Factors[i].Index < b.Factors[j].Index):
			factors = append(factors, a.Factors[i])
			i++
		case i == len(a.Factors) || b.Factors[j].Index < a.Factors[i].Index:
			factors = append(factors, b.Factors[j])
			j++
		default:
			factors = append(factors, Factor{Index: a.Factors[i].Index, Exp: a.Factors[i].Exp + b.Factors[j].Exp})
			i++
			j++
		}
	}
	return Relation{Y: y, Factors: factors, LargePrime: a.LargePrime, Combined: true}
}
