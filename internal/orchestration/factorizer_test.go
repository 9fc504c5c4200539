package orchestration

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/agbru/qsieve/internal/config"
	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/qsieve"
)

// MockSplitter is a Splitter driven by SplitFunc that records its requests.
type MockSplitter struct {
	mu        sync.Mutex
	requests  []SplitRequest
	SplitFunc func(ctx context.Context, req SplitRequest) (*big.Int, error)
}

func (m *MockSplitter) Split(ctx context.Context, req SplitRequest) (*big.Int, qsieve.Stats, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	attempt := len(m.requests)
	m.mu.Unlock()
	d, err := m.SplitFunc(ctx, req)
	return d, qsieve.Stats{FactorBaseSize: req.Params.FBPrimes, Polynomials: uint64(attempt)}, err
}

func (m *MockSplitter) Requests() []SplitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SplitRequest(nil), m.requests...)
}

// knownPrimes splits any product of these primes.
var knownPrimes = []int64{3, 998244353, 1000000007, 1000000009}

func splitKnown(_ context.Context, req SplitRequest) (*big.Int, error) {
	for _, p := range knownPrimes {
		bp := big.NewInt(p)
		if new(big.Int).Rem(req.N, bp).Sign() == 0 && req.N.Cmp(bp) != 0 {
			return bp, nil
		}
	}
	return nil, errors.New("unknown factorization")
}

func product(factors ...int64) *big.Int {
	n := big.NewInt(1)
	for _, f := range factors {
		n.Mul(n, big.NewInt(f))
	}
	return n
}

func factorStrings(fs []*big.Int) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

func assertFactors(t *testing.T, res Result, want ...int64) {
	t.Helper()
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Factors) != len(want) {
		t.Fatalf("factors %v, want %v", factorStrings(res.Factors), want)
	}
	for i, w := range want {
		if res.Factors[i].Int64() != w {
			t.Fatalf("factors %v, want %v", factorStrings(res.Factors), want)
		}
	}
}

func TestFactorizerScreening(t *testing.T) {
	t.Parallel()

	p := int64(1000000007)
	tests := []struct {
		name     string
		n        *big.Int
		full     bool
		method   string
		factors  []int64
		complete bool
	}{
		{"unit", big.NewInt(1), false, MethodUnit, nil, true},
		{"prime", big.NewInt(p), false, MethodPrime, []int64{p}, true},
		{"trial division", big.NewInt(8051), false, MethodTrialDivision, []int64{83, 97}, true},
		{"even", product(2, p, 1000000009), false, MethodTrialDivision, []int64{2, p * 1000000009}, false},
		{"small square", big.NewInt(1018081), false, MethodTrialDivision, []int64{1009, 1009}, true},
		{"cube split", product(p, p, p), false, MethodPerfectPower, []int64{p, p * p}, false},
		{"cube full", product(p, p, p), true, MethodPerfectPower, []int64{p, p, p}, true},
		{"full trial division", big.NewInt(2 * 2 * 2 * 3 * 3 * 5 * 7), true, MethodTrialDivision, []int64{2, 2, 2, 3, 3, 5, 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := &MockSplitter{SplitFunc: splitKnown}
			f := &Factorizer{Splitter: mock, MaxAttempts: 1, FullFactor: tt.full}
			res := f.Factor(context.Background(), tt.n, 0)
			assertFactors(t, res, tt.factors...)
			if res.Method != tt.method {
				t.Errorf("method = %q, want %q", res.Method, tt.method)
			}
			if res.Complete != tt.complete {
				t.Errorf("complete = %v, want %v", res.Complete, tt.complete)
			}
			if n := len(mock.Requests()); n != 0 {
				t.Errorf("%d sieve requests, want none", n)
			}
		})
	}
}

func TestFactorizerRejectsNonPositive(t *testing.T) {
	t.Parallel()

	f := &Factorizer{Splitter: &MockSplitter{SplitFunc: splitKnown}, MaxAttempts: 1}
	for _, n := range []*big.Int{nil, big.NewInt(0), big.NewInt(-15)} {
		res := f.Factor(context.Background(), n, 0)
		var pe apperrors.PreconditionError
		if !errors.As(res.Err, &pe) {
			t.Errorf("Factor(%v) error = %v, want PreconditionError", n, res.Err)
		}
	}
}

func TestFactorizerFullFactorization(t *testing.T) {
	t.Parallel()

	mock := &MockSplitter{SplitFunc: splitKnown}
	f := &Factorizer{Splitter: mock, MaxAttempts: 1, FullFactor: true}
	n := product(3, 3, 998244353, 1000000007, 1000000009)
	res := f.Factor(context.Background(), n, 0)
	assertFactors(t, res, 3, 3, 998244353, 1000000007, 1000000009)
	if !res.Complete || res.Method != MethodSieve {
		t.Errorf("complete=%v method=%q", res.Complete, res.Method)
	}
	if res.Attempts != len(mock.Requests()) || len(res.Stats) != res.Attempts {
		t.Errorf("attempts=%d stats=%d requests=%d", res.Attempts, len(res.Stats), len(mock.Requests()))
	}
}

func TestFactorizerRetuneLadder(t *testing.T) {
	t.Parallel()

	calls := 0
	mock := &MockSplitter{SplitFunc: func(ctx context.Context, req SplitRequest) (*big.Int, error) {
		calls++
		if calls < 3 {
			return nil, apperrors.NewRetuneError("no dependency split", nil)
		}
		return splitKnown(ctx, req)
	}}
	f := &Factorizer{
		Splitter:    mock,
		MaxAttempts: 5,
		Overrides:   config.AppConfig{FBPrimes: 400, ExtraRels: 10}.ApplyOverrides,
	}
	res := f.Factor(context.Background(), product(998244353, 1000000007), 7)
	assertFactors(t, res, 998244353, 1000000007)
	if res.Attempts != 3 || len(res.Stats) != 3 {
		t.Fatalf("attempts=%d stats=%d, want 3", res.Attempts, len(res.Stats))
	}

	reqs := mock.Requests()
	wantFB := []int{400, 500, 625}
	wantExtra := []int{10, 20, 40}
	for i, req := range reqs {
		if req.Params.FBPrimes != wantFB[i] || req.Params.ExtraRels != wantExtra[i] {
			t.Errorf("attempt %d: fb=%d extra=%d, want %d and %d",
				i+1, req.Params.FBPrimes, req.Params.ExtraRels, wantFB[i], wantExtra[i])
		}
		if req.Index != 7 {
			t.Errorf("attempt %d: index %d, want 7", i+1, req.Index)
		}
	}
}

func TestFactorizerFailures(t *testing.T) {
	t.Parallel()

	n := product(998244353, 1000000007)
	tests := []struct {
		name     string
		split    func(context.Context, SplitRequest) (*big.Int, error)
		attempts int
		exitCode int
	}{
		{
			name: "retunes exhausted",
			split: func(context.Context, SplitRequest) (*big.Int, error) {
				return nil, apperrors.NewRetuneError("degenerate", qsieve.ErrAExhausted)
			},
			attempts: 2,
			exitCode: apperrors.ExitErrorRetune,
		},
		{
			name: "invariant stops the ladder",
			split: func(context.Context, SplitRequest) (*big.Int, error) {
				return nil, apperrors.NewInvariantError("sqrt", "odd exponent")
			},
			attempts: 1,
			exitCode: apperrors.ExitErrorInvariant,
		},
		{
			name: "improper divisor",
			split: func(_ context.Context, req SplitRequest) (*big.Int, error) {
				return new(big.Int).Set(req.N), nil
			},
			attempts: 1,
			exitCode: apperrors.ExitErrorInvariant,
		},
		{
			name: "canceled",
			split: func(context.Context, SplitRequest) (*big.Int, error) {
				return nil, context.Canceled
			},
			attempts: 1,
			exitCode: apperrors.ExitErrorCanceled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := &Factorizer{Splitter: &MockSplitter{SplitFunc: tt.split}, MaxAttempts: 2}
			res := f.Factor(context.Background(), n, 0)
			if res.Err == nil {
				t.Fatal("expected an error")
			}
			var fe apperrors.FactorError
			if !errors.As(res.Err, &fe) || fe.N != n.String() {
				t.Errorf("error %v is not a FactorError for %s", res.Err, n)
			}
			if res.Factors != nil || res.Complete {
				t.Errorf("failed result carries factors %v", res.Factors)
			}
			if res.Attempts != tt.attempts {
				t.Errorf("attempts = %d, want %d", res.Attempts, tt.attempts)
			}
			if got := ExitCode([]Result{res}); got != tt.exitCode {
				t.Errorf("exit code = %d, want %d", got, tt.exitCode)
			}
		})
	}
}

func TestFactorizerWithSieve(t *testing.T) {
	t.Parallel()

	cfg := config.AppConfig{Workers: 1, MaxAttempts: 3}
	f := NewFactorizer(cfg, nil, nil)
	n, _ := new(big.Int).SetString("424559803594048253", 10)
	res := f.Factor(context.Background(), n, 0)
	assertFactors(t, res, 527574841, 804738533)
	if res.Method != MethodSieve || res.Attempts < 1 || res.Stats[0].FactorBaseSize == 0 {
		t.Errorf("method=%q attempts=%d stats=%+v", res.Method, res.Attempts, res.Stats)
	}
}

func TestFactorizerFullWithSieve(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recursive sieve factorization in short mode")
	}
	t.Parallel()

	cfg := config.AppConfig{Workers: 2, MaxAttempts: 3, FullFactor: true}
	f := NewFactorizer(cfg, qsieve.DefaultTuneTable(), nil)
	res := f.Factor(context.Background(), product(998244353, 1000000007, 1000000009), 0)
	assertFactors(t, res, 998244353, 1000000007, 1000000009)
	if !res.Complete {
		t.Error("full factorization not complete")
	}
}

func TestFactorizerCanceledSieve(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewFactorizer(config.AppConfig{Workers: 1, MaxAttempts: 3}, nil, nil)
	n, _ := new(big.Int).SetString("44873544716921590519", 10)
	res := f.Factor(ctx, n, 0)
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", res.Err)
	}
	if res.Attempts != 1 {
		t.Errorf("canceled run retried: %d attempts", res.Attempts)
	}
}
