package qsieve

import (
	"math/big"

	"github.com/agbru/qsieve/internal/arith"
	apperrors "github.com/agbru/qsieve/internal/errors"
)

// Factor is one (factor-base slot, exponent) pair of a relation. Slot 0
// carries the sign of Y² − kn.
type Factor struct {
	Index int
	Exp   int
}

// Relation records Y with Y² − kn = sign·∏ p^e · L, where L is the large
// prime cofactor (1 for a full relation).
//
// A combined relation is the product of two partial relations sharing L:
// its Y is Y1·Y2 mod n, its exponents are the sums, and L² divides the
// right-hand side, so L contributes a factor L to the square root.
type Relation struct {
	Y          *big.Int
	Factors    []Factor
	LargePrime uint64
	Combined   bool
}

// IsFull reports whether the relation is usable in the matrix as is.
func (r Relation) IsFull() bool { return r.LargePrime == 1 || r.Combined }

// Rows returns the matrix rows of the relation: the slots with an odd
// exponent, strictly increasing.
func (r Relation) Rows() []int {
	rows := make([]int, 0, len(r.Factors))
	for _, f := range r.Factors {
		if f.Exp&1 == 1 {
			rows = append(rows, f.Index)
		}
	}
	return rows
}

// relationKind classifies the outcome of evaluating a candidate.
type relationKind int

const (
	kindNone relationKind = iota
	kindFull
	kindPartial
	kindFactor // a large prime shares a factor with n
)

// collector trial-divides sieve candidates. Each worker owns one.
type collector struct {
	fb      *FactorBase
	lpBound uint64
	exps    []int
	touched []int
	y, g    *big.Int
	q, r    *big.Int
	pBig    *big.Int
}

func newCollector(fb *FactorBase, params Params) *collector {
	return &collector{
		fb:      fb,
		lpBound: LargePrimeBound(fb.Max(), params.LargePrimeMultiplier),
		exps:    make([]int, fb.Len()),
		y:       new(big.Int),
		g:       new(big.Int),
		q:       new(big.Int),
		r:       new(big.Int),
		pBig:    new(big.Int),
	}
}

// evaluate factors g(x) for sieve index idx of the current polynomial.
//
// Returns:
//   - Relation: The relation (meaningful for kindFull and kindPartial).
//   - relationKind: What was found.
//   - *big.Int: A factor of n for kindFactor.
//   - error: InvariantError when the recorded factorization does not
//     reproduce Y² − kn.
func (c *collector) evaluate(p *Poly, idx int) (Relation, relationKind, *big.Int, error) {
	x := big.NewInt(int64(idx - p.M))
	c.y.Mul(p.A, x)
	c.y.Add(c.y, p.B)

	// g(x) = (Ax² + 2Bx + C) = (Y² − kn)/A
	c.g.Mul(p.A, x)
	c.g.Add(c.g, c.pBig.Lsh(p.B, 1))
	c.g.Mul(c.g, x)
	c.g.Add(c.g, p.C)

	for _, i := range c.touched {
		c.exps[i] = 0
	}
	c.touched = c.touched[:0]

	if c.g.Sign() < 0 {
		c.bump(0, 1)
		c.g.Neg(c.g)
	}
	if c.g.Sign() == 0 {
		return Relation{}, kindNone, nil, nil
	}
	for _, i := range p.AInd {
		c.bump(i, 1)
	}

	primes := c.fb.Primes
	for i := 1; i < len(primes); i++ {
		pr := primes[i].P
		if p.Soln1[i] != noRoot {
			r := arith.ModPreInv(uint64(idx), pr, primes[i].Pinv)
			if r != p.Soln1[i] && r != p.Soln2[i] {
				continue
			}
		} else if arith.ModBig(c.g, pr) != 0 {
			continue
		}
		c.bump(i, c.divideOut(pr))
		if c.g.IsUint64() && c.g.Uint64() == 1 {
			break
		}
	}

	cof := uint64(0)
	if c.g.IsUint64() {
		cof = c.g.Uint64()
	}
	var kind relationKind
	switch {
	case cof == 1:
		kind = kindFull
	case cof > 1 && cof < c.lpBound:
		L := new(big.Int).SetUint64(cof)
		if gcd := new(big.Int).GCD(nil, nil, L, c.fb.N); gcd.Cmp(bigOne) != 0 && gcd.Cmp(c.fb.N) != 0 {
			return Relation{}, kindFactor, gcd, nil
		}
		kind = kindPartial
	default:
		return Relation{}, kindNone, nil, nil
	}

	rel := Relation{Y: new(big.Int).Set(c.y), LargePrime: cof, Factors: c.factors()}
	if err := verifyRelation(c.fb, rel); err != nil {
		return Relation{}, kindNone, nil, err
	}
	return rel, kind, nil, nil
}

// divideOut removes every power of pr from g and returns the exponent.
func (c *collector) divideOut(pr uint32) int {
	e := 0
	if c.g.IsUint64() {
		v := c.g.Uint64()
		for v%uint64(pr) == 0 {
			v /= uint64(pr)
			e++
		}
		c.g.SetUint64(v)
		return e
	}
	c.pBig.SetUint64(uint64(pr))
	for {
		c.q.QuoRem(c.g, c.pBig, c.r)
		if c.r.Sign() != 0 {
			return e
		}
		c.g.Set(c.q)
		e++
		if c.g.IsUint64() {
			return e + c.divideOutSmall(pr)
		}
	}
}

func (c *collector) divideOutSmall(pr uint32) int {
	e := 0
	v := c.g.Uint64()
	for v%uint64(pr) == 0 {
		v /= uint64(pr)
		e++
	}
	c.g.SetUint64(v)
	return e
}

func (c *collector) bump(i, e int) {
	if c.exps[i] == 0 && e != 0 {
		c.touched = append(c.touched, i)
	}
	c.exps[i] += e
}

// factors returns the nonzero exponents sorted by slot.
func (c *collector) factors() []Factor {
	out := make([]Factor, 0, len(c.touched))
	for i := range c.exps {
		if c.exps[i] != 0 {
			out = append(out, Factor{Index: i, Exp: c.exps[i]})
		}
	}
	return out
}

// verifyRelation checks sign·∏ p^e · L == Y² − kn exactly.
func verifyRelation(fb *FactorBase, rel Relation) error {
	lhs := new(big.Int).Mul(rel.Y, rel.Y)
	lhs.Sub(lhs, fb.KN)

	rhs := new(big.Int).SetUint64(rel.LargePrime)
	pe := new(big.Int)
	for _, f := range rel.Factors {
		if f.Index == 0 {
			if f.Exp&1 == 1 {
				rhs.Neg(rhs)
			}
			continue
		}
		pe.Exp(big.NewInt(int64(fb.Primes[f.Index].P)), big.NewInt(int64(f.Exp)), nil)
		rhs.Mul(rhs, pe)
	}
	if lhs.Cmp(rhs) != 0 {
		return apperrors.NewInvariantError("relation", "Y=%s: factorization %s != Y²−kn %s", rel.Y, rhs, lhs)
	}
	return nil
}

var bigOne = big.NewInt(1)
