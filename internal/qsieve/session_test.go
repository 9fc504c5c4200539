package qsieve

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/linalg"
)

// semiprimeCase is one entry of testdata/semiprimes_golden.json.
type semiprimeCase struct {
	N string `json:"n"`
	P string `json:"p"`
	Q string `json:"q"`
}

func loadGolden(t *testing.T) []semiprimeCase {
	t.Helper()
	goldenPath := filepath.Join("testdata", "semiprimes_golden.json")
	file, err := os.Open(goldenPath)
	if err != nil {
		t.Fatalf("Failed to open golden file: %v. Did you run 'go run ./cmd/generate-golden'?", err)
	}
	defer file.Close()

	var cases []semiprimeCase
	if err := json.NewDecoder(file).Decode(&cases); err != nil {
		t.Fatalf("Failed to decode golden file: %v", err)
	}
	return cases
}

func factorWith(t *testing.T, n *big.Int, params Params, opts ...Option) (*Session, *big.Int) {
	t.Helper()
	s, err := Init(n, params, opts...)
	if err != nil {
		t.Fatalf("Init(%s): %v", n, err)
	}
	f, err := s.Factor(context.Background())
	if err != nil {
		t.Fatalf("Factor(%s): %v", n, err)
	}
	return s, f
}

func TestFactorAgainstGoldenFile(t *testing.T) {
	t.Parallel()

	for _, tc := range loadGolden(t) {
		t.Run(tc.N, func(t *testing.T) {
			t.Parallel()
			n := mustInt(t, tc.N)
			if testing.Short() && n.BitLen() > 100 {
				t.Skip("skipping large input in short mode")
			}
			s, f := factorWith(t, n, ParamsForBits(n.BitLen(), nil))
			if f.String() != tc.P && f.String() != tc.Q {
				t.Fatalf("factor %s, want %s or %s", f, tc.P, tc.Q)
			}

			st := s.Stats()
			if s.FactorBase() == nil {
				return // found during the factor-base walk
			}
			target := s.buf.Target()
			if st.Relations.Usable() < target {
				t.Errorf("usable relations %d below target %d", st.Relations.Usable(), target)
			}
			if st.Polynomials == 0 || st.AValues == 0 || st.DepsTried == 0 {
				t.Errorf("incomplete stats: %+v", st)
			}
			if st.FactorBaseSize != s.Params().FBPrimes {
				t.Errorf("factor base size %d, want %d", st.FactorBaseSize, s.Params().FBPrimes)
			}
		})
	}
}

// TestFactorFortyDigits checks that collection stops close to the relation
// target instead of overshooting it, and that the large-prime variation
// contributes partial and combined relations at this size.
func TestFactorFortyDigits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 40-digit factorization in short mode")
	}
	t.Parallel()

	n := mustInt(t, "3556325116979947289066925298769844021427")
	combinedBefore := testutil.ToFloat64(relationsTotal.WithLabelValues("combined"))
	s, f := factorWith(t, n, ParamsForBits(n.BitLen(), nil))
	if new(big.Int).Mod(n, f).Sign() != 0 {
		t.Fatalf("%s does not divide n", f)
	}
	const slack = 500
	usable, target := s.Stats().Relations.Usable(), s.buf.Target()
	if usable > target+slack {
		t.Errorf("collected %d usable relations for a target of %d", usable, target)
	}
	counts := s.Stats().Relations
	if counts.Partial == 0 || counts.Combined == 0 {
		t.Errorf("large-prime variation idle: %+v", counts)
	}
	if got := testutil.ToFloat64(relationsTotal.WithLabelValues("combined")) - combinedBefore; got < float64(counts.Combined) {
		t.Errorf("combined relations counter grew by %v, want at least %d", got, counts.Combined)
	}
}

func TestFactorSmallFactorDuringInit(t *testing.T) {
	t.Parallel()

	s, f := factorWith(t, big.NewInt(8051), ParamsForBits(13, nil))
	if f.Int64() != 83 {
		t.Errorf("factor = %s, want 83", f)
	}
	if s.FactorBase() != nil {
		t.Error("factor base kept although the walk found a factor")
	}
}

// TestFactorSmallInputBySieving uses a factor base that stays below 83, so
// 8051 is split by sieving and linear algebra rather than by the factor-base
// walk.
func TestFactorSmallInputBySieving(t *testing.T) {
	t.Parallel()

	params := ParamsFromEntry(TuneEntry{Bits: 13, KSPrimes: 5, FBPrimes: 8, SmallPrimes: 2, SieveSize: 200})
	params.ExtraRels = 4
	s, f := factorWith(t, big.NewInt(8051), params)
	if s.FactorBase() == nil {
		t.Fatal("factor found during the factor-base walk; expected the sieve path")
	}
	if s.FactorBase().Max() >= 83 {
		t.Fatalf("largest factor-base prime %d reaches a factor of n", s.FactorBase().Max())
	}
	if f.Int64() != 83 && f.Int64() != 97 {
		t.Errorf("factor = %s, want 83 or 97", f)
	}
	if st := s.Stats(); st.Polynomials == 0 || st.Candidates == 0 {
		t.Errorf("sieve stage not run: %+v", st)
	}
}

func TestFactorWithWorkers(t *testing.T) {
	t.Parallel()

	n := mustInt(t, "208045874553486733906189")
	params := ParamsForBits(n.BitLen(), nil)
	params.Workers = 4
	_, f := factorWith(t, n, params)
	if f.String() != "304886741501" && f.String() != "682371012689" {
		t.Errorf("factor = %s", f)
	}
}

func TestInitRejectsInputs(t *testing.T) {
	t.Parallel()

	square := new(big.Int).Mul(big.NewInt(1000003), big.NewInt(1000003))
	tests := []struct {
		name string
		n    *big.Int
	}{
		{"nil", nil},
		{"zero", big.NewInt(0)},
		{"negative", big.NewInt(-8051)},
		{"even", big.NewInt(8052)},
		{"too small", big.NewInt(15)},
		{"prime", big.NewInt(1000003)},
		{"perfect square", square},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Init(tt.n, ParamsForBits(40, nil))
			var pe apperrors.PreconditionError
			if !errors.As(err, &pe) {
				t.Fatalf("Init = %v, want PreconditionError", err)
			}
		})
	}
}

func TestInitConfigError(t *testing.T) {
	t.Parallel()

	params := ParamsForBits(59, nil)
	params.SieveSize = 7
	_, err := Init(mustInt(t, "424559803594048253"), params)
	var ce apperrors.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("Init = %v, want ConfigError", err)
	}
}

func TestFactorCanceled(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		n := mustInt(t, "44873544716921590519")
		params := ParamsForBits(n.BitLen(), nil)
		params.Workers = workers
		s, err := Init(n, params)
		if err != nil {
			t.Fatalf("Init: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = s.Factor(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("%d workers: Factor = %v, want context.Canceled", workers, err)
		}
		if got := outcome(err); got != "canceled" {
			t.Errorf("%d workers: outcome = %q, want canceled", workers, got)
		}
		if got := s.Stats().Polynomials; got != 0 {
			t.Errorf("%d workers: %d polynomials sieved after cancellation", workers, got)
		}
	}
}

func TestFactorRetuneOnExhaustion(t *testing.T) {
	t.Parallel()

	params := ParamsForBits(59, nil)
	params.FBPrimes = 10
	params.SmallPrimes = 2
	params.ExtraRels = 100000
	s, err := Init(mustInt(t, "424559803594048253"), params)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, err = s.Factor(context.Background())
	if !apperrors.IsRetune(err) {
		t.Fatalf("Factor = %v, want RetuneError", err)
	}
	if !errors.Is(err, ErrAExhausted) {
		t.Errorf("retune cause = %v, want ErrAExhausted", err)
	}
	if outcome(err) != "retune" {
		t.Errorf("outcome = %q", outcome(err))
	}
}

func TestClearedSession(t *testing.T) {
	t.Parallel()

	n := mustInt(t, "424559803594048253")
	s, err := Init(n, ParamsForBits(n.BitLen(), nil))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.Clear()
	if s.FactorBase() != nil {
		t.Error("FactorBase survived Clear")
	}
	if _, err := s.Factor(context.Background()); err == nil {
		t.Error("Factor succeeded on a cleared session")
	}
}

// TestDependenciesAreCongruences runs collection and linear algebra by hand
// and checks X² ≡ Z² (mod n) for every dependency.
func TestDependenciesAreCongruences(t *testing.T) {
	t.Parallel()

	n := mustInt(t, "44873544716921590519")
	s, err := Init(n, ParamsForBits(n.BitLen(), nil))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.collect(context.Background()); err != nil {
		t.Fatalf("collect: %v", err)
	}
	rels := s.buf.Relations()
	m := linalg.New(s.fb.Len())
	for i, r := range rels {
		if !r.Combined {
			if err := verifyRelation(s.fb, r); err != nil {
				t.Fatal(err)
			}
		}
		if err := m.AddColumn(r.Rows(), i); err != nil {
			t.Fatal(err)
		}
	}
	m.PruneSingletons()
	deps := m.Solve(16)
	if len(deps) == 0 {
		t.Fatal("no dependencies")
	}
	found := false
	for _, dep := range deps {
		x, z, err := SquareRoot(s.fb, rels, dep)
		if err != nil {
			t.Fatalf("SquareRoot: %v", err)
		}
		x2 := new(big.Int).Mul(x, x)
		z2 := new(big.Int).Mul(z, z)
		if x2.Mod(x2, n).Cmp(z2.Mod(z2, n)) != 0 {
			t.Fatalf("X² != Z² mod n for dependency %v", dep)
		}
		if f := ExtractFactor(n, x, z); f != nil {
			found = true
		}
	}
	if !found {
		t.Error("every dependency was degenerate")
	}
}

func TestFactorReportsProgress(t *testing.T) {
	t.Parallel()

	n := mustInt(t, "424559803594048253")
	subject := NewProgressSubject()
	ch := make(chan ProgressUpdate, 4096)
	subject.Register(NewChannelObserver(ch))

	factorWith(t, n, ParamsForBits(n.BitLen(), nil), WithProgress(subject, 3))
	close(ch)

	var last ProgressUpdate
	count := 0
	for u := range ch {
		if u.Index != 3 {
			t.Fatalf("update for index %d", u.Index)
		}
		if u.Value < last.Value && count > 0 {
			t.Fatalf("progress went backwards: %v after %v", u.Value, last.Value)
		}
		last = u
		count++
	}
	if count == 0 || last.Value != 1 {
		t.Errorf("%d updates, last %v; want a final 1", count, last.Value)
	}
}
