package qsieve

import (
	"math/big"
	"sync"
	"testing"
)

func fullRel(y int64, factors ...Factor) Relation {
	return Relation{Y: big.NewInt(y), Factors: factors, LargePrime: 1}
}

func partialRel(y int64, lp uint64, factors ...Factor) Relation {
	return Relation{Y: big.NewInt(y), Factors: factors, LargePrime: lp}
}

func TestRelationBufferCountsAndDuplicates(t *testing.T) {
	t.Parallel()

	buf := NewRelationBuffer(big.NewInt(1000003), 4, 5)
	buf.Add(fullRel(10, Factor{1, 1}))
	buf.Add(fullRel(11, Factor{2, 2}))
	buf.Add(fullRel(-10, Factor{1, 1})) // same |Y| as the first
	buf.Add(partialRel(12, 101, Factor{1, 1}))
	// the fourth Add triggered a merge
	if got := buf.Counts(); got.Full != 2 || got.Partial != 1 || got.Duplicates != 1 {
		t.Fatalf("after merge: %+v", got)
	}

	buf.Add(partialRel(13, 101, Factor{2, 1}))
	buf.Add(partialRel(14, 101, Factor{1, 1}, Factor{2, 1}))
	buf.Add(partialRel(15, 103, Factor{3, 1}))
	if buf.Ready() {
		t.Fatal("Ready before the partials were merged")
	}

	counts := buf.Merge()
	want := RelationCounts{Full: 2, Partial: 4, Combined: 2, Duplicates: 1}
	if counts != want {
		t.Fatalf("Merge() = %+v, want %+v", counts, want)
	}
	if counts.Usable() != 4 || buf.Ready() {
		t.Fatalf("usable %d, ready %v with target 5", counts.Usable(), buf.Ready())
	}
	if p := buf.Progress(); p != 0.8 {
		t.Errorf("Progress() = %v, want 0.8", p)
	}

	buf.Add(fullRel(16))
	if !buf.Ready() {
		t.Fatal("pending full relation should close the gap")
	}
	if p := buf.Progress(); p != 1 {
		t.Errorf("Progress() = %v, want 1", p)
	}
}

func TestRelationBufferCombinesPartials(t *testing.T) {
	t.Parallel()

	n := big.NewInt(1000003)
	buf := NewRelationBuffer(n, 100, 10)
	buf.Add(fullRel(7, Factor{1, 2}))
	buf.Add(partialRel(500, 97, Factor{0, 1}, Factor{2, 1}))
	buf.Add(partialRel(-2000, 97, Factor{2, 1}, Factor{4, 3}))
	buf.Add(partialRel(3000, 97, Factor{1, 1}))
	buf.Add(partialRel(9, 89, Factor{1, 1}))

	rels := buf.Relations()
	if len(rels) != 3 {
		t.Fatalf("Relations() returned %d, want 3", len(rels))
	}
	if rels[0].LargePrime != 1 || rels[0].Combined {
		t.Fatalf("first relation should be the full one: %+v", rels[0])
	}

	// First partial of group 97 is |Y| = 500.
	y := new(big.Int).Mul(big.NewInt(500), big.NewInt(-2000))
	y.Mod(y, n)
	c := rels[1]
	if !c.Combined || c.LargePrime != 97 || c.Y.Cmp(y) != 0 {
		t.Fatalf("combined relation %+v, want Y=%s", c, y)
	}
	wantFactors := []Factor{{0, 1}, {2, 2}, {4, 3}}
	if len(c.Factors) != len(wantFactors) {
		t.Fatalf("factors %v, want %v", c.Factors, wantFactors)
	}
	for i := range wantFactors {
		if c.Factors[i] != wantFactors[i] {
			t.Fatalf("factors %v, want %v", c.Factors, wantFactors)
		}
	}
	if got := c.Rows(); len(got) != 2 || got[0] != 0 || got[1] != 4 {
		t.Errorf("Rows() = %v, want [0 4]", got)
	}
	if !rels[2].IsFull() || rels[2].Y.Cmp(big.NewInt(1500000%1000003)) != 0 {
		t.Errorf("second combined relation Y = %s", rels[2].Y)
	}
}

func TestRelationBufferConcurrentAdds(t *testing.T) {
	t.Parallel()

	const workers, perWorker = 8, 250
	buf := NewRelationBuffer(big.NewInt(1000003), 64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				buf.Add(fullRel(int64(w*perWorker + i + 1)))
			}
		}(w)
	}
	wg.Wait()

	if !buf.Ready() {
		t.Fatalf("buffer not ready: %+v", buf.Merge())
	}
	if got := buf.Merge(); got.Full != workers*perWorker || got.Duplicates != 0 {
		t.Errorf("counts %+v", got)
	}
}
