package qsieve

import (
	"errors"
	"math/big"
	"slices"
	"testing"

	"github.com/agbru/qsieve/internal/arith"
	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func mustInt(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("invalid integer %q", s)
	}
	return n
}

func TestKnuthSchroeppel(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"8051", "424559803594048253", "3556325116979947289066925298769844021427"} {
		n := mustInt(t, s)
		k, score := KnuthSchroeppel(n, 50)
		if !slices.Contains(multipliers, k) {
			t.Errorf("n=%s: multiplier %d not a candidate", s, k)
		}
		if _, square := arith.IsPerfectSquare(new(big.Int).Mul(n, big.NewInt(int64(k)))); square {
			t.Errorf("n=%s: kn is a perfect square for k=%d", s, k)
		}
		if k2, score2 := KnuthSchroeppel(n, 50); k2 != k || score2 != score {
			t.Errorf("n=%s: not deterministic (%d, %v) vs (%d, %v)", s, k, score, k2, score2)
		}
	}
}

func TestKnuthSchroeppelSkipsSquareKN(t *testing.T) {
	t.Parallel()

	// 3·(prime)² makes k = 3 a perfect-square multiplier.
	n := new(big.Int).Mul(big.NewInt(3), new(big.Int).Mul(big.NewInt(1000003), big.NewInt(1000003)))
	if k, _ := KnuthSchroeppel(n, 50); k == 3 {
		t.Error("multiplier 3 chosen although 3n is a square")
	}
}

func checkFactorBase(fb *FactorBase, size int) string {
	if fb.Len() != size {
		return "wrong size"
	}
	if fb.Primes[0].P != fb.K || fb.Primes[1].P != 2 {
		return "slots 0 and 1 must hold k and 2"
	}
	for i := 2; i < fb.Len(); i++ {
		p := fb.Primes[i].P
		if i > 2 && p <= fb.Primes[i-1].P {
			return "primes not strictly increasing"
		}
		if fb.Primes[i].Size != arith.Log2Round(p) {
			return "wrong size byte"
		}
		knp := arith.ModBig(fb.KN, p)
		r := uint64(fb.Sqrts[i])
		if knp == 0 {
			if fb.Sqrts[i] != 0 || fb.K%p != 0 {
				return "prime dividing kn must divide k and have root 0"
			}
			continue
		}
		if arith.Legendre(knp, p) != 1 {
			return "non-residue in factor base"
		}
		if r*r%uint64(p) != uint64(knp) {
			return "root does not square to kn"
		}
	}
	return ""
}

func TestNewFactorBase(t *testing.T) {
	t.Parallel()

	n := mustInt(t, "424559803594048253")
	k, _ := KnuthSchroeppel(n, 50)
	fb, err := NewFactorBase(n, k, 100)
	if err != nil {
		t.Fatalf("NewFactorBase: %v", err)
	}
	if msg := checkFactorBase(fb, 100); msg != "" {
		t.Fatal(msg)
	}
	if fb.KN.Cmp(new(big.Int).Mul(n, big.NewInt(int64(k)))) != 0 {
		t.Error("KN != k·n")
	}
}

func TestNewFactorBaseSmallFactor(t *testing.T) {
	t.Parallel()

	_, err := NewFactorBase(big.NewInt(8051), 1, 60)
	var sf *SmallFactorError
	if !errors.As(err, &sf) {
		t.Fatalf("NewFactorBase(8051) = %v, want SmallFactorError", err)
	}
	if sf.Factor.Int64() != 83 {
		t.Errorf("factor = %s, want 83", sf.Factor)
	}
}

func TestFactorBaseRoot(t *testing.T) {
	t.Parallel()

	r, err := factorBaseRoot(10, 13)
	if err != nil {
		t.Fatalf("factorBaseRoot(10, 13): %v", err)
	}
	if r*r%13 != 10 {
		t.Errorf("root %d squares to %d mod 13, want 10", r, r*r%13)
	}

	_, err = factorBaseRoot(2, 5)
	var ie apperrors.InvariantError
	if !errors.As(err, &ie) || ie.Stage != "factor base" {
		t.Fatalf("factorBaseRoot(2, 5) = %v, want a factor base InvariantError", err)
	}
}

func TestNewFactorBaseTooSmall(t *testing.T) {
	t.Parallel()

	// 1003 = 17·59; the walk reaches 17 before n runs out.
	if _, err := NewFactorBase(big.NewInt(1003), 1, 200); err == nil {
		t.Fatal("expected an error for n=1003")
	}
	var pe apperrors.PreconditionError
	if _, err := NewFactorBase(big.NewInt(1003), 1, 2); !errors.As(err, &pe) {
		t.Errorf("size 2 accepted: %v", err)
	}
}

func TestFactorBase_PropertyBased(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("entries are residues with valid roots", prop.ForAll(
		func(v uint64) bool {
			n := new(big.Int).SetUint64(v | 1)
			k, _ := KnuthSchroeppel(n, 30)
			fb, err := NewFactorBase(n, k, 60)
			var sf *SmallFactorError
			if errors.As(err, &sf) {
				return new(big.Int).Mod(n, sf.Factor).Sign() == 0
			}
			return err == nil && checkFactorBase(fb, 60) == ""
		},
		gen.UInt64Range(1<<40, 1<<62),
	))

	properties.TestingRun(t)
}
