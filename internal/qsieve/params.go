package qsieve

import (
	"math/bits"

	"github.com/agbru/qsieve/internal/arith"
	apperrors "github.com/agbru/qsieve/internal/errors"
)

const (
	// BlockSize is the number of sieve bytes processed per cache block.
	BlockSize = 64000

	// BitsAdjust is subtracted from the expected log-size of g(x) to obtain
	// the acceptance threshold.
	BitsAdjust = 10

	// DefaultExtraRels is the relation surplus over the factor-base size.
	DefaultExtraRels = 64

	// DefaultQsortRels is the number of pending relations that triggers a
	// merge-sort pass.
	DefaultQsortRels = 1000

	// DefaultLargePrimeMultiplier bounds partial-relation cofactors at
	// multiplier·p_max.
	DefaultLargePrimeMultiplier = 32

	// DefaultMaxDependencies caps how many null-space vectors the linear
	// algebra stage extracts.
	DefaultMaxDependencies = 64

	// MinBits is the smallest input the engine accepts.
	MinBits = 10

	// accumulationLimit is the largest value a sieve byte may reach.
	accumulationLimit = 255

	// widenFactor bounds how far the A band may be widened around target_A.
	widenFactor = 6
)

// Params holds the tuning of one factoring attempt. It is selected once at
// session initialization and read-only afterwards.
type Params struct {
	KSPrimes    int
	FBPrimes    int
	SmallPrimes int
	SieveSize   int

	ExtraRels            int
	QsortRels            int
	LargePrimeMultiplier uint64
	BitsAdjust           int
	MaxDependencies      int

	// Workers shards sieving over independent A values. 1 keeps the engine
	// single-threaded.
	Workers int
}

// ParamsFromEntry expands a tuning-table row with the package defaults.
func ParamsFromEntry(e TuneEntry) Params {
	return Params{
		KSPrimes:             e.KSPrimes,
		FBPrimes:             e.FBPrimes,
		SmallPrimes:          e.SmallPrimes,
		SieveSize:            e.SieveSize,
		ExtraRels:            DefaultExtraRels,
		QsortRels:            DefaultQsortRels,
		LargePrimeMultiplier: DefaultLargePrimeMultiplier,
		BitsAdjust:           BitsAdjust,
		MaxDependencies:      DefaultMaxDependencies,
		Workers:              1,
	}
}

// ParamsForBits selects the parameters for an input of the given bit length.
//
// Parameters:
//   - bits: Bit length of n.
//   - table: Tuning table, nil for the built-in one.
//
// Returns:
//   - Params: Parameters with package defaults for the non-table fields.
func ParamsForBits(bits int, table []TuneEntry) Params {
	return ParamsFromEntry(LookupTune(bits, table))
}

// Validate checks the parameters for an input whose multiplied value kn has
// knBits bits, including the sieve byte-overflow bound.
func (p Params) Validate(knBits int) error {
	switch {
	case p.FBPrimes < 4:
		return apperrors.NewConfigError("factor base size %d is below 4", p.FBPrimes)
	case p.SmallPrimes < 2 || p.SmallPrimes >= p.FBPrimes:
		return apperrors.NewConfigError("small primes %d must lie in [2, %d)", p.SmallPrimes, p.FBPrimes)
	case p.SieveSize < 2 || p.SieveSize%2 != 0:
		return apperrors.NewConfigError("sieve size %d must be even and positive", p.SieveSize)
	case p.KSPrimes < 1:
		return apperrors.NewConfigError("ks primes %d must be positive", p.KSPrimes)
	case p.ExtraRels < 1:
		return apperrors.NewConfigError("extra relations %d must be positive", p.ExtraRels)
	case p.QsortRels < 1:
		return apperrors.NewConfigError("qsort relations %d must be positive", p.QsortRels)
	case p.LargePrimeMultiplier < 1:
		return apperrors.NewConfigError("large prime multiplier must be positive")
	case p.Workers < 1:
		return apperrors.NewConfigError("workers %d must be positive", p.Workers)
	case p.MaxDependencies < 1:
		return apperrors.NewConfigError("max dependencies %d must be positive", p.MaxDependencies)
	}
	if acc := MaxAccumulation(p, knBits); acc > accumulationLimit {
		return apperrors.NewConfigError("sieve bytes may reach %d (limit %d) for a %d-bit kn", acc, accumulationLimit, knBits)
	}
	return nil
}

// SieveThreshold returns sieve_bits, the byte value a sieve position must
// exceed to become a candidate. It is the expected log2|g(x)| reduced by
// BitsAdjust and by the width of the largest cofactor a partial relation may
// carry, so that partials reach the threshold as well as full relations.
//
// Parameters:
//   - p: Session parameters.
//   - knBits: Bit length of kn.
//   - pmax: Largest factor-base prime.
//
// Returns:
//   - int: The threshold, clamped to [1, 254].
func SieveThreshold(p Params, knBits int, pmax uint32) int {
	m := p.SieveSize / 2
	t := bits.Len(uint(m)) + knBits/2 - p.BitsAdjust - lpBits(pmax, p.LargePrimeMultiplier)
	if t < 1 {
		t = 1
	}
	if t > accumulationLimit-1 {
		t = accumulationLimit - 1
	}
	return t
}

// LargePrimeBound returns the exclusive bound on partial-relation cofactors:
// mult·pmax, capped at pmax² so that a cofactor below it is prime.
func LargePrimeBound(pmax uint32, mult uint64) uint64 {
	p := uint64(pmax)
	bound := p * mult
	if sq := p * p; sq < bound {
		bound = sq
	}
	return bound
}

// MaxAccumulation bounds the value any sieve byte can reach.
//
// A sieved prime adds round(log2 p) ≤ log2 p + 1/2 at a position only when
// it divides g(x), and each prime adds at most once per position (primes
// with a double root are never sieved). The sum is therefore bounded by
// log2|g|max plus half the number of distinct sieved primes that fit in
// |g|max. |g(x)| ≤ widenFactor·M·sqrt(kn) for every A the selector accepts.
func MaxAccumulation(p Params, knBits int) int {
	m := p.SieveSize / 2
	gBits := bits.Len(uint(m)) + (knBits+1)/2 + bits.Len(widenFactor) + 1
	pmin := smallestSievedPrime(p.SmallPrimes)
	count := gBits / (bits.Len32(pmin) - 1)
	return gBits + (count+1)/2
}

// smallestSievedPrime returns a lower bound for the first sieved prime: the
// factor-base entry at index i (i ≥ 1) is at least the i-th prime.
func smallestSievedPrime(smallPrimes int) uint32 {
	primes := arith.SievePrimes(1 << 16)
	i := smallPrimes - 1
	if i < 1 {
		i = 1
	}
	if i >= len(primes) {
		i = len(primes) - 1
	}
	return primes[i]
}

// lpBits is the sieve slack left for a large-prime cofactor, 0 when partial
// relations are disabled.
func lpBits(pmax uint32, mult uint64) int {
	if mult <= 1 {
		return 0
	}
	return bits.Len64(LargePrimeBound(pmax, mult))
}
