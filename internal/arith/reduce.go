package arith

import (
	"math/big"
	"math/bits"
)

// PreInv returns the precomputed reciprocal floor((2^64-1)/p) used by
// ModPreInv. Factor-base entries store it next to the prime.
func PreInv(p uint32) uint64 {
	return ^uint64(0) / uint64(p)
}

// ModPreInv reduces a modulo p with one high multiplication instead of a
// hardware division. pinv must be PreInv(p).
//
// The quotient estimate hi(a·pinv) is at most two below floor(a/p), so the
// remainder needs at most two corrections.
func ModPreInv(a uint64, p uint32, pinv uint64) uint32 {
	q, _ := bits.Mul64(a, pinv)
	r := a - q*uint64(p)
	for r >= uint64(p) {
		r -= uint64(p)
	}
	return uint32(r)
}

// ModBig returns x mod p in [0, p), for any sign of x.
//
// It walks the limbs of |x| from the most significant end, reducing with
// bits.Rem64 on 64-bit platforms, which avoids allocating a big.Int per
// prime during trial division.
func ModBig(x *big.Int, p uint32) uint32 {
	words := x.Bits()
	P := uint64(p)
	var r uint64
	for i := len(words) - 1; i >= 0; i-- {
		w := uint64(words[i])
		if bits.UintSize == 64 {
			r = bits.Rem64(r, w, P)
		} else {
			r = (r<<32 | w) % P
		}
	}
	if x.Sign() < 0 && r != 0 {
		r = P - r
	}
	return uint32(r)
}

// IsPerfectSquare reports whether n ≥ 0 is a perfect square and returns its
// integer square root.
func IsPerfectSquare(n *big.Int) (*big.Int, bool) {
	if n.Sign() < 0 {
		return nil, false
	}
	root := new(big.Int).Sqrt(n)
	sq := new(big.Int).Mul(root, root)
	return root, sq.Cmp(n) == 0
}
