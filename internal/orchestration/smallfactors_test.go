package orchestration

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTrialDivide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, want uint64
	}{
		{4, 2},
		{15, 3},
		{8051, 83},
		{1018081, 1009},
		{1000003, 1000003},
		{(1 << 20) - 3, (1 << 20) - 3},
		{549755813881, 549755813881}, // prime just below 2^39
	}
	for _, tt := range tests {
		if got := trialDivide(tt.n); got.Uint64() != tt.want {
			t.Errorf("trialDivide(%d) = %s, want %d", tt.n, got, tt.want)
		}
	}
}

func TestPerfectPower(t *testing.T) {
	t.Parallel()

	p := big.NewInt(1000000007)
	tests := []struct {
		name string
		n    *big.Int
		root int64
		exp  int
	}{
		{"below four", big.NewInt(3), 0, 0},
		{"square", new(big.Int).Mul(p, p), 1000000007, 2},
		{"cube", new(big.Int).Exp(p, big.NewInt(3), nil), 1000000007, 3},
		{"seventh power", new(big.Int).Exp(big.NewInt(3), big.NewInt(7), nil), 3, 7},
		{"sixth power reported as square", new(big.Int).Exp(big.NewInt(5), big.NewInt(6), nil), 125, 2},
		{"semiprime", big.NewInt(8051), 0, 0},
		{"power times one", new(big.Int).Add(new(big.Int).Exp(p, big.NewInt(3), nil), big.NewInt(1)), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root, exp := perfectPower(tt.n)
			if tt.root == 0 {
				if root != nil {
					t.Errorf("perfectPower(%s) = %s^%d, want none", tt.n, root, exp)
				}
				return
			}
			if root == nil || root.Int64() != tt.root || exp != tt.exp {
				t.Errorf("perfectPower(%s) = %v^%d, want %d^%d", tt.n, root, exp, tt.root, tt.exp)
			}
		})
	}
}

func TestNthRootProperty(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("nthRoot returns the integer floor of the root", prop.ForAll(
		func(x uint64, e int) bool {
			n := new(big.Int).SetUint64(x)
			n.Mul(n, n).Add(n, big.NewInt(int64(e))) // up to 128 bits
			r := nthRoot(n, e)
			exp := big.NewInt(int64(e))
			lower := new(big.Int).Exp(r, exp, nil)
			upper := new(big.Int).Exp(new(big.Int).Add(r, big.NewInt(1)), exp, nil)
			return lower.Cmp(n) <= 0 && upper.Cmp(n) > 0
		},
		gen.UInt64Range(1, 1<<63),
		gen.IntRange(2, 13),
	))

	properties.TestingRun(t)
}
