// Package qsieve implements the self-initializing quadratic sieve.
//
// A Session owns one factoring attempt: Init screens the input, picks the
// Knuth–Schroeppel multiplier and builds the factor base; Factor sieves
// polynomials until enough relations are stored, finds dependencies over
// GF(2) and extracts a factor from a congruence of squares; Clear releases
// the session's buffers.
//
// A RetuneError from Factor is an expected outcome: the driver retries with
// larger parameters.
package qsieve

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/linalg"
	"github.com/agbru/qsieve/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Stats describes a factoring attempt.
type Stats struct {
	Multiplier     uint32         `json:"multiplier"`
	FactorBaseSize int            `json:"factor_base_size"`
	LargestPrime   uint32         `json:"largest_prime"`
	SieveThreshold int            `json:"sieve_threshold"`
	PolysPerA      uint64         `json:"polys_per_a"`
	AValues        uint64         `json:"a_values"`
	Polynomials    uint64         `json:"polynomials"`
	Candidates     uint64         `json:"candidates"`
	Relations      RelationCounts `json:"relations"`
	MatrixColumns  int            `json:"matrix_columns"`
	Pruned         int            `json:"pruned"`
	Dependencies   int            `json:"dependencies"`
	DepsTried      int            `json:"dependencies_tried"`
	Duration       time.Duration  `json:"duration"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProgress registers a progress subject and the index reported with
// each update.
func WithProgress(subject *ProgressSubject, index int) Option {
	return func(s *Session) {
		s.subject = subject
		s.index = index
	}
}

// Session is the state of one factoring attempt.
type Session struct {
	n       *big.Int
	params  Params
	log     logging.Logger
	subject *ProgressSubject
	index   int

	fb    *FactorBase
	sel   *aSelector
	buf   *RelationBuffer
	early *big.Int

	aValues, polys, candidates atomic.Uint64
	stats                      Stats
}

// foundFactor short-circuits the workers when a large prime shares a factor
// with n.
type foundFactor struct{ factor *big.Int }

func (f *foundFactor) Error() string { return "factor found during collection: " + f.factor.String() }

// CheckPreconditions rejects inputs the engine must not process: nonpositive,
// even, below MinBits, prime or perfect-square values.
func CheckPreconditions(n *big.Int) error {
	switch {
	case n == nil || n.Sign() <= 0:
		return apperrors.PreconditionError{Reason: "n must be positive"}
	case n.Bit(0) == 0:
		return apperrors.NewPreconditionError("n is even", n)
	case n.BitLen() < MinBits:
		return apperrors.NewPreconditionError(fmt.Sprintf("n has fewer than %d bits", MinBits), n)
	case n.ProbablyPrime(20):
		return apperrors.NewPreconditionError("n is prime", n)
	}
	if root := new(big.Int).Sqrt(n); new(big.Int).Mul(root, root).Cmp(n) == 0 {
		return apperrors.NewPreconditionError("n is a perfect square", n)
	}
	return nil
}

// Init prepares a session for n.
//
// Parameters:
//   - n: An odd composite, not a perfect square, of at least MinBits bits.
//   - params: Tuning, usually from ParamsForBits.
//   - opts: Logger and progress options.
//
// Returns:
//   - *Session: The session; Factor returns immediately when a factor-base
//     prime already divides n.
//   - error: PreconditionError or ConfigError.
func Init(n *big.Int, params Params, opts ...Option) (*Session, error) {
	if err := CheckPreconditions(n); err != nil {
		return nil, err
	}
	s := &Session{
		n:      new(big.Int).Set(n),
		params: params,
		log:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	k, score := KnuthSchroeppel(n, params.KSPrimes)
	knBits := new(big.Int).Mul(n, big.NewInt(int64(k))).BitLen()
	if err := params.Validate(knBits); err != nil {
		return nil, err
	}

	fb, err := NewFactorBase(n, k, params.FBPrimes)
	var small *SmallFactorError
	switch {
	case errors.As(err, &small):
		s.early = small.Factor
		s.log.Info("factor base prime divides n", logging.Stringer("factor", small.Factor))
		return s, nil
	case err != nil:
		return nil, err
	}

	sel, err := newASelector(fb, params, s.log)
	if err != nil {
		return nil, err
	}
	s.fb, s.sel = fb, sel
	s.buf = NewRelationBuffer(s.n, params.QsortRels, fb.Len()+params.ExtraRels)
	s.stats = Stats{
		Multiplier:     k,
		FactorBaseSize: fb.Len(),
		LargestPrime:   fb.Max(),
		SieveThreshold: SieveThreshold(params, knBits, fb.Max()),
		PolysPerA:      1 << uint(max(sel.s-1, 0)),
	}
	s.log.Info("session initialized",
		logging.Int("bits", n.BitLen()),
		logging.Uint64("multiplier", uint64(k)),
		logging.Float64("ks_score", score),
		logging.Int("factor_base", fb.Len()),
		logging.Uint64("largest_prime", uint64(fb.Max())),
		logging.Int("s", sel.s),
		logging.Int("sieve_bits", s.stats.SieveThreshold),
	)
	return s, nil
}

// FactorBase returns the session's factor base, nil after Clear or when a
// factor was found during initialization.
func (s *Session) FactorBase() *FactorBase { return s.fb }

// Params returns the session parameters.
func (s *Session) Params() Params { return s.params }

// Stats returns a snapshot of the attempt's statistics.
func (s *Session) Stats() Stats {
	st := s.stats
	st.AValues = s.aValues.Load()
	st.Polynomials = s.polys.Load()
	st.Candidates = s.candidates.Load()
	if s.buf != nil {
		st.Relations = s.buf.Counts()
	}
	return st
}

// Factor runs the sieve and returns a nontrivial divisor of n.
//
// Parameters:
//   - ctx: Checked between polynomials; cancellation aborts the attempt.
//
// Returns:
//   - *big.Int: A divisor d with 1 < d < n.
//   - error: RetuneError when the attempt ended without a factor,
//     InvariantError on a numeric inconsistency, or the context error.
func (s *Session) Factor(ctx context.Context) (factor *big.Int, err error) {
	ctx, span := otel.Tracer("qsieve").Start(ctx, "Factor")
	defer span.End()
	span.SetAttributes(attribute.Int("bits", s.n.BitLen()))

	start := time.Now()
	defer func() {
		s.stats.Duration = time.Since(start)
		status := outcome(err)
		factorizationsTotal.WithLabelValues(status).Inc()
		factorDuration.Observe(s.stats.Duration.Seconds())
		s.log.Debug("factoring attempt finished",
			logging.String("status", status),
			logging.Float64("duration", s.stats.Duration.Seconds()),
			logging.Uint64("polynomials", s.polys.Load()),
		)
	}()

	if s.early != nil {
		s.notify(1)
		return new(big.Int).Set(s.early), nil
	}
	if s.fb == nil {
		return nil, errors.New("qsieve: session already cleared")
	}

	err = s.collect(ctx)
	var ff *foundFactor
	if errors.As(err, &ff) {
		return ff.factor, nil
	}
	if err != nil {
		return nil, err
	}
	s.notify(1)

	span.AddEvent("linear algebra")
	return s.solve()
}

// collect runs Params.Workers sieve workers until the relation buffer reaches
// its target. The first worker error cancels the others at their next
// polynomial.
func (s *Session) collect(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for id := range s.params.Workers {
		g.Go(func() error { return s.sieveWorker(ctx, id) })
	}
	return g.Wait()
}

// sieveWorker owns a polynomial, a sieve array and a collector, and feeds
// the shared relation buffer.
func (s *Session) sieveWorker(ctx context.Context, id int) error {
	poly := newPoly(s.fb, s.sel, s.params)
	arr := newSieveArray(s.params, s.fb)
	col := newCollector(s.fb, s.params)
	var cands []int
	for !s.buf.Ready() {
		if err := ctx.Err(); err != nil {
			return err
		}
		newA, err := poly.Advance()
		if errors.Is(err, ErrAExhausted) {
			return apperrors.NewRetuneError("polynomial selection exhausted before enough relations", err)
		}
		if err != nil {
			return err
		}
		if newA {
			s.aValues.Add(1)
			s.log.Debug("new A", logging.Int("worker", id), logging.Stringer("A", poly.A))
		}
		s.polys.Add(1)
		polynomialsTotal.Inc()

		arr.run(poly)
		cands = arr.candidates(cands)
		s.candidates.Add(uint64(len(cands)))
		for _, idx := range cands {
			rel, kind, f, err := col.evaluate(poly, idx)
			if err != nil {
				return err
			}
			switch kind {
			case kindFull:
				relationsTotal.WithLabelValues("full").Inc()
				s.buf.Add(rel)
			case kindPartial:
				relationsTotal.WithLabelValues("partial").Inc()
				s.buf.Add(rel)
			case kindFactor:
				return &foundFactor{factor: f}
			}
		}
		s.notify(s.buf.Progress())
	}
	return nil
}

// solve builds the matrix from the stored relations and tries each
// dependency in turn.
func (s *Session) solve() (*big.Int, error) {
	rels := s.buf.Relations()
	relationsTotal.WithLabelValues("combined").Add(float64(s.buf.Counts().Combined))
	m := linalg.New(s.fb.Len())
	for i, r := range rels {
		if err := m.AddColumn(r.Rows(), i); err != nil {
			return nil, apperrors.NewInvariantError("matrix", "%v", err)
		}
	}
	s.stats.MatrixColumns = m.Columns()
	s.stats.Pruned = m.PruneSingletons()
	deps := m.Solve(s.params.MaxDependencies)
	s.stats.Dependencies = len(deps)
	coreRows, coreCols := m.Core()
	s.log.Info("linear algebra done",
		logging.Int("relations", len(rels)),
		logging.Int("pruned", s.stats.Pruned),
		logging.Int("core_rows", coreRows),
		logging.Int("core_columns", coreCols),
		logging.Int("dependencies", len(deps)),
	)

	for _, dep := range deps {
		s.stats.DepsTried++
		x, z, err := SquareRoot(s.fb, rels, dep)
		if err != nil {
			return nil, err
		}
		if f := ExtractFactor(s.n, x, z); f != nil {
			return f, nil
		}
	}
	return nil, apperrors.NewRetuneError(fmt.Sprintf("all %d dependencies were degenerate", len(deps)), nil)
}

// Clear releases the factor base, polynomial and relation buffers. The
// session cannot be used afterwards.
func (s *Session) Clear() {
	s.fb, s.sel, s.buf, s.early = nil, nil, nil, nil
}

func (s *Session) notify(progress float64) {
	if s.subject != nil {
		s.subject.Notify(s.index, progress)
	}
}

func outcome(err error) string {
	var (
		pe apperrors.PreconditionError
		ie apperrors.InvariantError
	)
	switch {
	case err == nil:
		return "success"
	case apperrors.IsContextError(err):
		return "canceled"
	case apperrors.IsRetune(err):
		return "retune"
	case errors.As(err, &ie):
		return "invariant"
	case errors.As(err, &pe):
		return "precondition"
	}
	return "error"
}
