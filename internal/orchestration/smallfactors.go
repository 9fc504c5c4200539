package orchestration

import (
	"math/big"

	"github.com/agbru/qsieve/internal/arith"
)

// trialDivide returns the smallest prime factor of n ≥ 2, or n itself when
// n is prime.
func trialDivide(n uint64) *big.Int {
	gen := arith.NewPrimeGenerator()
	for {
		p := uint64(gen.Next())
		if p*p > n {
			return new(big.Int).SetUint64(n)
		}
		if n%p == 0 {
			return new(big.Int).SetUint64(p)
		}
	}
}

// perfectPower reports whether n = r^e for some e ≥ 2 and returns r and e.
// Only prime exponents are tried; a composite exponent is caught by one of
// its prime factors.
func perfectPower(n *big.Int) (*big.Int, int) {
	if n.Cmp(big.NewInt(4)) < 0 {
		return nil, 0
	}
	if root, ok := arith.IsPerfectSquare(n); ok {
		return root, 2
	}
	gen := arith.NewPrimeGenerator()
	gen.Next() // 2
	for e := int(gen.Next()); e < n.BitLen(); e = int(gen.Next()) {
		root := nthRoot(n, e)
		if new(big.Int).Exp(root, big.NewInt(int64(e)), nil).Cmp(n) == 0 {
			return root, e
		}
	}
	return nil, 0
}

// nthRoot returns ⌊n^(1/e)⌋ for n ≥ 1 by bisection.
func nthRoot(n *big.Int, e int) *big.Int {
	exp := big.NewInt(int64(e))
	lo := big.NewInt(1)
	hi := new(big.Int).Lsh(big.NewInt(1), uint(n.BitLen()/e+1))
	mid, pow := new(big.Int), new(big.Int)
	for lo.Cmp(hi) < 0 {
		// mid = ⌈(lo+hi)/2⌉
		mid.Add(lo, hi).Add(mid, big.NewInt(1)).Rsh(mid, 1)
		if pow.Exp(mid, exp, nil).Cmp(n) <= 0 {
			lo.Set(mid)
		} else {
			hi.Sub(mid, big.NewInt(1))
		}
	}
	return lo
}
