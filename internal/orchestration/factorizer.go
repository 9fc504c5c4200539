package orchestration

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/agbru/qsieve/internal/config"
	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/logging"
	"github.com/agbru/qsieve/internal/qsieve"
)

// SmallInputBits is the size below which composites are split by trial
// division instead of the sieve.
const SmallInputBits = 40

// primalityRounds is the Miller-Rabin round count for leaf checks.
const primalityRounds = 20

// Split methods reported in Result.Method.
const (
	MethodSieve         = "sieve"
	MethodTrialDivision = "trial-division"
	MethodPerfectPower  = "perfect-power"
	MethodPrime         = "prime"
	MethodUnit          = "unit"
)

// SplitRequest describes one sieve attempt.
type SplitRequest struct {
	N        *big.Int
	Params   qsieve.Params
	Index    int
	Progress *qsieve.ProgressSubject
}

// Splitter finds a nontrivial divisor of an odd composite of at least
// SmallInputBits bits that is not a perfect power.
type Splitter interface {
	// Split runs one attempt. A RetuneError asks for a retry with larger
	// parameters.
	Split(ctx context.Context, req SplitRequest) (*big.Int, qsieve.Stats, error)
}

// SieveSplitter runs a qsieve session per attempt.
type SieveSplitter struct {
	Logger logging.Logger
}

// Split initializes a session for req.N, factors it and releases it.
func (s SieveSplitter) Split(ctx context.Context, req SplitRequest) (*big.Int, qsieve.Stats, error) {
	session, err := qsieve.Init(req.N, req.Params,
		qsieve.WithLogger(s.Logger),
		qsieve.WithProgress(req.Progress, req.Index),
	)
	if err != nil {
		return nil, qsieve.Stats{}, err
	}
	defer session.Clear()

	d, err := session.Factor(ctx)
	return d, session.Stats(), err
}

// Factorizer drives the factorization of one input: small inputs and
// perfect powers are handled directly, the rest goes through the Splitter
// with growing parameters until a divisor appears or MaxAttempts is spent.
type Factorizer struct {
	Splitter Splitter
	// Table is the tuning table; nil selects the built-in one.
	Table []qsieve.TuneEntry
	// Overrides adjusts the table parameters before the retune ladder.
	Overrides func(qsieve.Params) qsieve.Params
	// MaxAttempts bounds the sieve attempts per composite.
	MaxAttempts int
	// FullFactor splits cofactors recursively down to primes.
	FullFactor bool
	Logger     logging.Logger
	// Progress receives per-input progress, keyed by input index.
	Progress *qsieve.ProgressSubject
}

// NewFactorizer builds a sieve-backed Factorizer from the configuration.
//
// Parameters:
//   - cfg: The application configuration (tuning overrides, attempts, mode).
//   - table: The tuning table, possibly merged with a calibration profile.
//   - logger: Logger for the driver and its sessions.
//
// Returns:
//   - *Factorizer: The configured driver.
func NewFactorizer(cfg config.AppConfig, table []qsieve.TuneEntry, logger logging.Logger) *Factorizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Factorizer{
		Splitter:    SieveSplitter{Logger: logger},
		Table:       table,
		Overrides:   cfg.ApplyOverrides,
		MaxAttempts: cfg.MaxAttempts,
		FullFactor:  cfg.FullFactor,
		Logger:      logger,
	}
}

// Factor factors n and never panics on bad input: failures are reported in
// Result.Err.
//
// Parameters:
//   - ctx: Cancels the running sieve attempt.
//   - n: The input.
//   - index: Progress index of this input.
//
// Returns:
//   - Result: Factors in ascending order, attempt statistics and any error.
func (f *Factorizer) Factor(ctx context.Context, n *big.Int, index int) Result {
	start := time.Now()
	res := Result{Index: index}
	if n == nil || n.Sign() <= 0 {
		res.Err = apperrors.PreconditionError{Reason: "n must be positive"}
		return res
	}
	res.N = new(big.Int).Set(n)

	var err error
	switch {
	case n.Cmp(big.NewInt(1)) == 0:
		res.Method = MethodUnit
	case n.ProbablyPrime(primalityRounds):
		res.Method = MethodPrime
		res.Factors = []*big.Int{res.N}
	case f.FullFactor:
		err = f.factorize(ctx, res.N, index, &res)
	default:
		var d *big.Int
		if d, err = f.split(ctx, res.N, index, &res); err == nil {
			res.Factors = []*big.Int{d, new(big.Int).Quo(res.N, d)}
		}
	}
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = apperrors.FactorError{N: res.N.String(), Cause: err}
		res.Factors = nil
		f.log().Warn("factorization failed", logging.Stringer("n", res.N), logging.Err(err))
		return res
	}

	slices.SortFunc(res.Factors, (*big.Int).Cmp)
	res.Complete = true
	for _, p := range res.Factors {
		if !p.ProbablyPrime(primalityRounds) {
			res.Complete = false
		}
	}
	if f.Progress != nil {
		f.Progress.Notify(index, 1)
	}
	f.log().Info("input factored",
		logging.Stringer("n", res.N),
		logging.String("method", res.Method),
		logging.Int("factors", len(res.Factors)),
		logging.Int("attempts", res.Attempts),
		logging.Float64("duration", res.Duration.Seconds()),
	)
	return res
}

// factorize appends the prime factors of m to res.Factors.
func (f *Factorizer) factorize(ctx context.Context, m *big.Int, index int, res *Result) error {
	if m.Cmp(big.NewInt(1)) == 0 {
		return nil
	}
	if m.ProbablyPrime(primalityRounds) {
		res.Factors = append(res.Factors, m)
		return nil
	}
	d, err := f.split(ctx, m, index, res)
	if err != nil {
		return err
	}
	if err := f.factorize(ctx, d, index, res); err != nil {
		return err
	}
	return f.factorize(ctx, new(big.Int).Quo(m, d), index, res)
}

// split returns a divisor d of the composite m with 1 < d < m. The first
// call records its method in res.
func (f *Factorizer) split(ctx context.Context, m *big.Int, index int, res *Result) (*big.Int, error) {
	method := MethodSieve
	var d *big.Int
	switch {
	case m.Bit(0) == 0:
		method, d = MethodTrialDivision, big.NewInt(2)
	case m.BitLen() < SmallInputBits:
		method, d = MethodTrialDivision, trialDivide(m.Uint64())
	default:
		if root, _ := perfectPower(m); root != nil {
			method, d = MethodPerfectPower, root
			break
		}
		var err error
		if d, err = f.sieve(ctx, m, index, res); err != nil {
			return nil, err
		}
	}
	if res.Method == "" {
		res.Method = method
	}

	if d == nil || d.Cmp(big.NewInt(1)) <= 0 || d.Cmp(m) >= 0 || new(big.Int).Rem(m, d).Sign() != 0 {
		return nil, apperrors.NewInvariantError("driver", "%s returned %v, not a proper divisor of %s", method, d, m)
	}
	return d, nil
}

// sieve runs the retune ladder on m.
func (f *Factorizer) sieve(ctx context.Context, m *big.Int, index int, res *Result) (*big.Int, error) {
	attempts := max(f.MaxAttempts, 1)
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		params := f.paramsFor(m.BitLen(), attempt)
		d, st, err := f.Splitter.Split(ctx, SplitRequest{
			N:        m,
			Params:   params,
			Index:    index,
			Progress: f.Progress,
		})
		res.Attempts++
		res.Stats = append(res.Stats, st)
		if err == nil {
			return d, nil
		}
		if !apperrors.IsRetune(err) {
			return nil, err
		}
		last = err
		f.log().Warn("retuning",
			logging.Int("attempt", attempt),
			logging.Int("bits", m.BitLen()),
			logging.Int("fb_primes", params.FBPrimes),
			logging.Err(err),
		)
	}
	return nil, apperrors.NewRetuneError(fmt.Sprintf("no factor after %d attempts", attempts), last)
}

// paramsFor returns the parameters of the given attempt: the table entry
// with overrides for the first one, then a factor base 25% larger and
// twice the relation surplus per retry.
func (f *Factorizer) paramsFor(bits, attempt int) qsieve.Params {
	p := qsieve.ParamsForBits(bits, f.Table)
	if f.Overrides != nil {
		p = f.Overrides(p)
	}
	for i := 1; i < attempt; i++ {
		p.FBPrimes += p.FBPrimes / 4
		p.ExtraRels *= 2
	}
	return p
}

func (f *Factorizer) log() logging.Logger {
	if f.Logger == nil {
		return logging.NewNopLogger()
	}
	return f.Logger
}
