// Package arith is the word-size arithmetic substrate of the sieve: modular
// inverse, Legendre symbol, modular square root, modular exponentiation and
// fast reduction by factor-base primes.
//
// All moduli are primes below 2^32, so every product of two residues fits in
// a uint64 and no 128-bit intermediate is needed outside ModPreInv.
package arith

// MulMod returns a·b mod m for a, b < m < 2^32.
func MulMod(a, b, m uint64) uint64 {
	return a * b % m
}

// PowMod returns base^exp mod m by square-and-multiply.
//
// Parameters:
//   - base: The base, reduced modulo m internally.
//   - exp: The exponent.
//   - m: The modulus, 1 < m < 2^32.
//
// Returns:
//   - uint64: base^exp mod m.
func PowMod(base, exp, m uint64) uint64 {
	if m == 1 {
		return 0
	}
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = MulMod(result, base, m)
		}
		base = MulMod(base, base, m)
		exp >>= 1
	}
	return result
}

// InvMod returns the inverse of a modulo m using the extended Euclidean
// algorithm. It returns 0 when a and m are not coprime.
//
// Parameters:
//   - a: The value to invert.
//   - m: The modulus, m > 1.
//
// Returns:
//   - uint32: x in [1, m) with a·x ≡ 1 (mod m), or 0.
func InvMod(a, m uint32) uint32 {
	if m <= 1 {
		return 0
	}
	r0, r1 := int64(m), int64(a%m)
	t0, t1 := int64(0), int64(1)
	for r1 != 0 {
		q := r0 / r1
		r0, r1 = r1, r0-q*r1
		t0, t1 = t1, t0-q*t1
	}
	if r0 != 1 {
		return 0
	}
	if t0 < 0 {
		t0 += int64(m)
	}
	return uint32(t0)
}

// Legendre returns the Legendre symbol (a/p) for an odd prime p:
// 1 if a is a nonzero quadratic residue, -1 if it is a non-residue and 0
// if p divides a. For p = 2 it returns a mod 2.
func Legendre(a, p uint32) int {
	if p == 2 {
		return int(a & 1)
	}
	a %= p
	if a == 0 {
		return 0
	}
	// Jacobi reciprocity; p is odd so the symbol equals the Legendre symbol.
	x, y := a, p
	sign := 1
	for x != 0 {
		for x&1 == 0 {
			x >>= 1
			if r := y & 7; r == 3 || r == 5 {
				sign = -sign
			}
		}
		x, y = y, x
		if x&3 == 3 && y&3 == 3 {
			sign = -sign
		}
		x %= y
	}
	if y != 1 {
		return 0
	}
	return sign
}

// SqrtMod returns a square root of a modulo the prime p using
// Tonelli–Shanks. The result r satisfies r² ≡ a (mod p) and r ≤ p/2 is
// not guaranteed. ok is false when a is a non-residue.
//
// Parameters:
//   - a: The residue.
//   - p: A prime below 2^32.
//
// Returns:
//   - uint32: A square root of a modulo p.
//   - bool: false when a has no square root modulo p.
func SqrtMod(a, p uint32) (uint32, bool) {
	a %= p
	if p == 2 || a == 0 {
		return a, true
	}
	if Legendre(a, p) != 1 {
		return 0, false
	}
	P := uint64(p)
	A := uint64(a)
	if p&3 == 3 {
		return uint32(PowMod(A, (P+1)/4, P)), true
	}

	// p-1 = q·2^s with q odd.
	q, s := P-1, 0
	for q&1 == 0 {
		q >>= 1
		s++
	}
	z := uint64(2)
	for Legendre(uint32(z), p) != -1 {
		z++
	}

	m := s
	c := PowMod(z, q, P)
	t := PowMod(A, q, P)
	r := PowMod(A, (q+1)/2, P)
	for t != 1 {
		// least i with t^(2^i) = 1
		i, t2 := 0, t
		for t2 != 1 {
			t2 = t2 * t2 % P
			i++
		}
		b := c
		for j := 0; j < m-i-1; j++ {
			b = b * b % P
		}
		m = i
		c = b * b % P
		t = t * c % P
		r = r * b % P
	}
	return uint32(r), true
}
