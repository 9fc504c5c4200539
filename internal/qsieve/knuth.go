package qsieve

import (
	"math"
	"math/big"

	"github.com/agbru/qsieve/internal/arith"
)

// multipliers are the odd square-free candidates scored by KnuthSchroeppel.
// Keeping k odd keeps kn odd, so 2 always splits through kn mod 8.
var multipliers = []uint32{
	1, 3, 5, 7, 11, 13, 15, 17, 19, 21, 23, 29, 31, 33, 35, 37,
	39, 41, 43, 47, 51, 53, 55, 57, 59, 61, 65, 67, 69, 71, 73,
}

// MaxMultiplierBits is the bit length of the largest multiplier.
const MaxMultiplierBits = 7

// KnuthSchroeppel picks the multiplier k that maximizes the expected
// contribution of small primes to kn, using the first ksPrimes odd primes.
// Multipliers making kn a perfect square are skipped.
//
// Parameters:
//   - n: The odd input.
//   - ksPrimes: Number of odd primes to score with.
//
// Returns:
//   - uint32: The chosen multiplier.
//   - float64: Its score.
func KnuthSchroeppel(n *big.Int, ksPrimes int) (uint32, float64) {
	primes := make([]uint32, 0, ksPrimes)
	gen := arith.NewPrimeGenerator()
	gen.Next() // 2 is scored through kn mod 8
	for len(primes) < ksPrimes {
		primes = append(primes, gen.Next())
	}
	nmod := make([]uint32, len(primes))
	for i, p := range primes {
		nmod[i] = arith.ModBig(n, p)
	}
	n8 := arith.ModBig(n, 8)

	best, bestScore := uint32(1), math.Inf(-1)
	kn := new(big.Int)
	for _, k := range multipliers {
		kn.Mul(n, big.NewInt(int64(k)))
		if _, square := arith.IsPerfectSquare(kn); square {
			continue
		}
		score := -0.5 * math.Log(float64(k))
		switch (n8 * k) % 8 {
		case 1:
			score += 2 * math.Ln2
		case 5:
			score += math.Ln2
		default:
			score += 0.5 * math.Ln2
		}
		for i, p := range primes {
			logp := math.Log(float64(p))
			if k%p == 0 {
				score += logp / float64(p)
				continue
			}
			knp := uint32(uint64(nmod[i]) * uint64(k%p) % uint64(p))
			if arith.Legendre(knp, p) == 1 {
				score += 2 * logp / float64(p-1)
			}
		}
		if score > bestScore {
			best, bestScore = k, score
		}
	}
	return best, bestScore
}
