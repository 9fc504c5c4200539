package qsieve

import (
	"errors"
	"math"
	"math/big"
	"sort"
	"sync"

	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/logging"
)

// ErrAExhausted is returned when no unused A value can be produced from the
// factor base. The session converts it into a retune request.
var ErrAExhausted = errors.New("qsieve: polynomial A values exhausted")

// maxRejects is the number of consecutive out-of-band candidates after which
// the selector widens the band to the closest unused candidate.
const maxRejects = 256

// aChoice is one accepted A = A0·q0.
type aChoice struct {
	A, A0    *big.Int
	ind      []int // factor-base slots of the A0 primes, then q0
	low, upp *big.Int
}

// aSelector hands out distinct A values to every polynomial generator of a
// session. A0 runs over the s-subsets of a window of mid-sized factor-base
// primes in lexicographic order; the window grows by two pool entries on
// each side when its subsets are used up.
//
// aSelector is safe for concurrent use.
type aSelector struct {
	mu  sync.Mutex
	fb  *FactorBase
	log logging.Logger

	pool   []int    // eligible factor-base slots, increasing
	values []uint32 // primes of pool
	s      int

	target, low, upp *big.Int

	lo, hi         int // window over pool
	prevLo, prevHi int // window enumerated before the last growth
	subset         []int
	started        bool

	used     map[string]struct{}
	rejects  int
	best     *aChoice
	bestDist float64
}

// newASelector derives target_A = sqrt(2kn)/M and the band
// [2·target/3, 3·target/2], then picks s so the s+1 primes of A sit around
// target^(1/(s+1)).
func newASelector(fb *FactorBase, params Params, log logging.Logger) (*aSelector, error) {
	m := int64(params.SieveSize / 2)
	target := new(big.Int).Lsh(fb.KN, 1)
	target.Sqrt(target)
	target.Quo(target, big.NewInt(m))
	if target.Sign() == 0 {
		target.SetInt64(1)
	}

	sel := &aSelector{
		fb:     fb,
		log:    log,
		target: target,
		low:    new(big.Int).Quo(new(big.Int).Lsh(target, 1), big.NewInt(3)),
		upp:    new(big.Int).Quo(new(big.Int).Mul(target, big.NewInt(3)), big.NewInt(2)),
		used:   make(map[string]struct{}),
	}
	for i := max(params.SmallPrimes, 2); i < fb.Len(); i++ {
		if fb.dividesKN(i) {
			continue
		}
		sel.pool = append(sel.pool, i)
		sel.values = append(sel.values, fb.Primes[i].P)
	}
	if len(sel.pool) < 3 {
		return nil, apperrors.NewPreconditionError("factor base too small for polynomial selection", fb.N)
	}

	sel.s = chooseS(bitLog2(target), math.Log2(float64(sel.values[0])), math.Log2(float64(sel.values[len(sel.values)-1])), len(sel.pool))

	per := bitLog2(target) / float64(sel.s+1)
	center := sort.Search(len(sel.values), func(i int) bool {
		return math.Log2(float64(sel.values[i])) >= per
	})
	if center >= len(sel.values) {
		center = len(sel.values) - 1
	}
	h := max(sel.s, 4)
	sel.lo = max(0, center-h)
	sel.hi = min(len(sel.pool), center+h+1)
	for sel.hi-sel.lo < sel.s {
		sel.lo = max(0, sel.lo-1)
		sel.hi = min(len(sel.pool), sel.hi+1)
	}
	return sel, nil
}

// chooseS returns the number of A0 primes for a target of targetBits bits
// drawn from a pool whose primes span [minBits, maxBits] bits.
func chooseS(targetBits, minBits, maxBits float64, poolSize int) int {
	s := int(math.Round(targetBits/11)) - 1
	if s < 2 && targetBits/3 >= minBits+1 {
		s = 2
	}
	if s < 1 {
		s = 1
	}
	for targetBits/float64(s+1) > maxBits && s+2 < poolSize {
		s++
	}
	for s > 1 && targetBits/float64(s+1) < minBits {
		s--
	}
	return min(s, poolSize-2, 16)
}

// next returns an unused A inside the band, widening the band to the closest
// unused candidate when none can be found.
func (a *aSelector) next() (aChoice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		if !a.advance() {
			if a.grow() {
				continue
			}
			if a.best != nil {
				return a.widenTo(), nil
			}
			return aChoice{}, ErrAExhausted
		}
		if a.seen() {
			continue
		}

		a0 := big.NewInt(1)
		for _, pos := range a.subset {
			a0.Mul(a0, big.NewInt(int64(a.values[pos])))
		}
		qpos := a.nearestOutside(new(big.Int).Quo(a.target, a0))
		if qpos < 0 {
			continue
		}
		A := new(big.Int).Mul(a0, big.NewInt(int64(a.values[qpos])))
		key := A.String()
		if _, dup := a.used[key]; dup {
			continue
		}

		ind := make([]int, 0, a.s+1)
		for _, pos := range a.subset {
			ind = append(ind, a.pool[pos])
		}
		ind = append(ind, a.pool[qpos])
		choice := aChoice{A: A, A0: a0, ind: ind}

		if A.Cmp(a.low) >= 0 && A.Cmp(a.upp) <= 0 {
			a.used[key] = struct{}{}
			a.rejects = 0
			a.best = nil
			choice.low, choice.upp = new(big.Int).Set(a.low), new(big.Int).Set(a.upp)
			return choice, nil
		}

		a.rejects++
		if d := math.Abs(bitLog2(A) - bitLog2(a.target)); d <= math.Log2(widenFactor) && (a.best == nil || d < a.bestDist) {
			a.best, a.bestDist = &choice, d
		}
		if a.rejects >= maxRejects && a.best != nil {
			return a.widenTo(), nil
		}
	}
}

// widenTo stretches the band to contain the best rejected candidate and
// returns it.
func (a *aSelector) widenTo() aChoice {
	c := *a.best
	if c.A.Cmp(a.low) < 0 {
		a.low.Set(c.A)
	}
	if c.A.Cmp(a.upp) > 0 {
		a.upp.Set(c.A)
	}
	a.log.Warn("widened A band",
		logging.Stringer("target", a.target),
		logging.Stringer("low", a.low),
		logging.Stringer("upp", a.upp),
	)
	a.used[c.A.String()] = struct{}{}
	a.best, a.rejects = nil, 0
	c.low, c.upp = new(big.Int).Set(a.low), new(big.Int).Set(a.upp)
	return c
}

// advance moves subset to the next s-combination of [lo, hi).
func (a *aSelector) advance() bool {
	s := a.s
	if !a.started {
		if a.hi-a.lo < s {
			return false
		}
		a.subset = a.subset[:0]
		for i := 0; i < s; i++ {
			a.subset = append(a.subset, a.lo+i)
		}
		a.started = true
		return true
	}
	i := s - 1
	for i >= 0 && a.subset[i] == a.hi-s+i {
		i--
	}
	if i < 0 {
		return false
	}
	a.subset[i]++
	for j := i + 1; j < s; j++ {
		a.subset[j] = a.subset[j-1] + 1
	}
	return true
}

// grow widens the window; it reports false once the window spans the pool.
func (a *aSelector) grow() bool {
	if a.lo == 0 && a.hi == len(a.pool) {
		return false
	}
	a.prevLo, a.prevHi = a.lo, a.hi
	a.lo = max(0, a.lo-2)
	a.hi = min(len(a.pool), a.hi+2)
	a.started = false
	return true
}

// seen reports whether the current subset lies in an earlier window.
func (a *aSelector) seen() bool {
	for _, pos := range a.subset {
		if pos < a.prevLo || pos >= a.prevHi {
			return false
		}
	}
	return true
}

// nearestOutside returns the pool position whose prime is closest to ratio
// and not part of the current subset, or -1.
func (a *aSelector) nearestOutside(ratio *big.Int) int {
	r := uint64(math.MaxUint32)
	if ratio.IsUint64() && ratio.Uint64() < r {
		r = ratio.Uint64()
	}
	j := sort.Search(len(a.values), func(i int) bool { return uint64(a.values[i]) >= r })
	inSubset := func(pos int) bool {
		for _, s := range a.subset {
			if s == pos {
				return true
			}
		}
		return false
	}
	l, h := j-1, j
	for l >= 0 && inSubset(l) {
		l--
	}
	for h < len(a.values) && inSubset(h) {
		h++
	}
	switch {
	case l < 0 && h >= len(a.values):
		return -1
	case l < 0:
		return h
	case h >= len(a.values):
		return l
	case r-uint64(a.values[l]) <= uint64(a.values[h])-r:
		return l
	default:
		return h
	}
}

// bitLog2 approximates log2 x for x > 0.
func bitLog2(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return math.Log2(f)
}
