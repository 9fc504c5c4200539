package calibration

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/agbru/qsieve/internal/orchestration"
	"github.com/agbru/qsieve/internal/qsieve"
)

// calibrationRunner times sieve attempts on a fixed sample of semiprimes.
type calibrationRunner struct {
	ctx      context.Context
	splitter orchestration.Splitter
	perTrial time.Duration
}

func newCalibrationRunner(ctx context.Context, splitter orchestration.Splitter, perTrial time.Duration) *calibrationRunner {
	if perTrial < 2*time.Second {
		perTrial = 2 * time.Second
	}
	return &calibrationRunner{ctx: ctx, splitter: splitter, perTrial: perTrial}
}

// runTrial factors every sample with params and returns the mean duration.
// Any failed sample fails the trial, so a candidate that needs retunes is
// never preferred.
//
// Parameters:
//   - params: The parameters under test.
//   - samples: Semiprimes of the row's bit length.
//
// Returns:
//   - time.Duration: The mean duration per sample.
//   - error: The first sample error, or a context error.
func (r *calibrationRunner) runTrial(params qsieve.Params, samples []*big.Int) (time.Duration, error) {
	var total time.Duration
	for _, n := range samples {
		ctx, cancel := context.WithTimeout(r.ctx, r.perTrial)
		start := time.Now()
		d, _, err := r.splitter.Split(ctx, orchestration.SplitRequest{N: n, Params: params})
		elapsed := time.Since(start)
		cancel()
		if err != nil {
			return 0, err
		}
		if d == nil || new(big.Int).Rem(n, d).Sign() != 0 {
			return 0, fmt.Errorf("trial on %s returned a non-divisor", n)
		}
		total += elapsed
	}
	return total / time.Duration(len(samples)), nil
}

// findBestFBPrimes times each candidate factor-base size.
//
// Parameters:
//   - base: Row parameters; only FBPrimes varies.
//   - candidates: Factor-base sizes to try.
//   - samples: Semiprimes to factor per candidate.
//
// Returns:
//   - []trialResult: One result per candidate, in order.
//   - int: The fastest candidate, or 0 if all failed.
func (r *calibrationRunner) findBestFBPrimes(base qsieve.Params, candidates []int, samples []*big.Int) ([]trialResult, int) {
	results := make([]trialResult, 0, len(candidates))
	best, bestDur := 0, time.Duration(1<<63-1)
	for _, c := range candidates {
		p := base
		p.FBPrimes = c
		dur, err := r.runTrial(p, samples)
		results = append(results, trialResult{FBPrimes: c, Duration: dur, Err: err})
		if err == nil && dur < bestDur {
			best, bestDur = c, dur
		}
		if r.ctx.Err() != nil {
			break
		}
	}
	return results, best
}

// randomSemiprimes returns count products of two random primes of bits/2
// and bits-bits/2 bits. crypto/rand.Prime sets the top two bits of each
// prime, so every product has exactly bits bits.
func randomSemiprimes(random io.Reader, bits, count int) ([]*big.Int, error) {
	out := make([]*big.Int, 0, count)
	for range count {
		p, err := rand.Prime(random, bits/2)
		if err != nil {
			return nil, err
		}
		q, err := rand.Prime(random, bits-bits/2)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Mul(p, q))
	}
	return out, nil
}
