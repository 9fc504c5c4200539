package arith

import "math"

// PrimeGenerator enumerates primes in increasing order. It sieves a window
// of odd numbers and doubles the window whenever the current one is used up,
// so the amortized cost stays that of a single Eratosthenes sieve.
type PrimeGenerator struct {
	primes []uint32
	pos    int
	limit  uint32
}

// NewPrimeGenerator returns a generator whose first call to Next yields 2.
func NewPrimeGenerator() *PrimeGenerator {
	g := &PrimeGenerator{}
	g.extend(1 << 12)
	return g
}

// Next returns the next prime. It panics past 2^32, far beyond any factor
// base this package builds.
func (g *PrimeGenerator) Next() uint32 {
	if g.pos == len(g.primes) {
		if g.limit >= math.MaxUint32/2 {
			panic("arith: prime generator exhausted")
		}
		g.extend(g.limit * 2)
	}
	p := g.primes[g.pos]
	g.pos++
	return p
}

// extend re-sieves up to limit and keeps the primes above the previous limit.
func (g *PrimeGenerator) extend(limit uint32) {
	fresh := SievePrimes(limit)
	start := 0
	for start < len(fresh) && fresh[start] <= g.limit {
		start++
	}
	g.primes = append(g.primes[:0], fresh[start:]...)
	g.pos = 0
	g.limit = limit
}

// SievePrimes returns all primes ≤ limit in increasing order.
func SievePrimes(limit uint32) []uint32 {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	estimate := int(float64(limit) / math.Log(float64(limit)) * 1.2)
	primes := make([]uint32, 0, estimate+1)
	for i := uint64(2); i <= uint64(limit); i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, uint32(i))
		for j := i * i; j <= uint64(limit); j += i {
			composite[j] = true
		}
	}
	return primes
}

// Log2Round returns round(log2 p), the size class a prime contributes to a
// sieve byte.
func Log2Round(p uint32) uint8 {
	if p <= 1 {
		return 0
	}
	return uint8(math.Round(math.Log2(float64(p))))
}
