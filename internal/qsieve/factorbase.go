package qsieve

import (
	"fmt"
	"math/big"

	"github.com/agbru/qsieve/internal/arith"
	apperrors "github.com/agbru/qsieve/internal/errors"
)

// Prime is one factor-base entry.
type Prime struct {
	P    uint32 // the prime; the multiplier k in slot 0
	Size uint8  // round(log2 P), the amount added to a sieve byte
	Pinv uint64 // arith.PreInv(P)
}

// FactorBase is the immutable set of primes relations are factored over.
//
// Slot 0 holds the multiplier k and doubles as the sign row of the matrix.
// Slot 1 holds 2. The remaining slots hold, in strictly increasing order,
// the odd primes dividing k and the odd primes p with (kn/p) = 1. Sqrts[i]
// is a square root of kn modulo Primes[i].P (0 for primes dividing kn).
type FactorBase struct {
	N      *big.Int
	K      uint32
	KN     *big.Int
	Primes []Prime
	Sqrts  []uint32
}

// SmallFactorError reports a prime of the factor-base walk that divides n.
// The session turns it into an immediate result.
type SmallFactorError struct {
	Factor *big.Int
}

func (e *SmallFactorError) Error() string {
	return fmt.Sprintf("factor base prime %s divides n", e.Factor)
}

// NewFactorBase chooses the multiplier and collects size primes.
//
// Parameters:
//   - n: The input, odd and composite.
//   - k: The multiplier, usually from KnuthSchroeppel.
//   - size: Number of entries including slots 0 and 1.
//
// Returns:
//   - *FactorBase: The factor base.
//   - error: *SmallFactorError when a walked prime divides n, or a
//     PreconditionError when n is too small for the requested size.
func NewFactorBase(n *big.Int, k uint32, size int) (*FactorBase, error) {
	if size < 3 {
		return nil, apperrors.NewPreconditionError(fmt.Sprintf("factor base size %d below 3", size), n)
	}
	fb := &FactorBase{
		N:      new(big.Int).Set(n),
		K:      k,
		KN:     new(big.Int).Mul(n, big.NewInt(int64(k))),
		Primes: make([]Prime, 0, size),
		Sqrts:  make([]uint32, 0, size),
	}
	fb.Primes = append(fb.Primes, Prime{P: k, Pinv: arith.PreInv(max(k, 2))})
	fb.Sqrts = append(fb.Sqrts, 0)
	fb.Primes = append(fb.Primes, Prime{P: 2, Size: 1, Pinv: arith.PreInv(2)})
	fb.Sqrts = append(fb.Sqrts, arith.ModBig(fb.KN, 2))

	gen := arith.NewPrimeGenerator()
	gen.Next()
	pBig := new(big.Int)
	for len(fb.Primes) < size {
		p := gen.Next()
		pBig.SetUint64(uint64(p))
		if pBig.Cmp(n) >= 0 {
			return nil, apperrors.NewPreconditionError(
				fmt.Sprintf("n too small for a %d-prime factor base", size), n)
		}
		if arith.ModBig(n, p) == 0 {
			return nil, &SmallFactorError{Factor: new(big.Int).Set(pBig)}
		}
		knp := arith.ModBig(fb.KN, p)
		var root uint32
		switch {
		case knp == 0:
			root = 0
		case arith.Legendre(knp, p) == 1:
			r, err := factorBaseRoot(knp, p)
			if err != nil {
				return nil, err
			}
			root = r
		default:
			continue
		}
		fb.Primes = append(fb.Primes, Prime{P: p, Size: arith.Log2Round(p), Pinv: arith.PreInv(p)})
		fb.Sqrts = append(fb.Sqrts, root)
	}
	return fb, nil
}

// factorBaseRoot returns a square root of the residue knp modulo p. A missing
// or wrong root is an InvariantError: callers only ask for residues.
func factorBaseRoot(knp, p uint32) (uint32, error) {
	r, ok := arith.SqrtMod(knp, p)
	if !ok || arith.MulMod(uint64(r), uint64(r), uint64(p)) != uint64(knp) {
		return 0, apperrors.NewInvariantError("factor base", "no square root of %d modulo %d", knp, p)
	}
	return r, nil
}

// Len returns the number of factor-base slots, slot 0 included.
func (fb *FactorBase) Len() int { return len(fb.Primes) }

// Max returns the largest factor-base prime.
func (fb *FactorBase) Max() uint32 { return fb.Primes[len(fb.Primes)-1].P }

// dividesKN reports whether slot i holds an odd prime dividing kn.
func (fb *FactorBase) dividesKN(i int) bool {
	return i >= 2 && fb.Sqrts[i] == 0
}
