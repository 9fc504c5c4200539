package qsieve

import (
	"math/big"

	apperrors "github.com/agbru/qsieve/internal/errors"
)

// modProduct accumulates a product modulo n. The default implementation
// uses math/big; building with -tags gmp swaps in libgmp.
type modProduct interface {
	Mul(x *big.Int)
	MulPow(p uint32, e int)
	Result() *big.Int
}

// newModProduct and productBackend are replaced by the gmp backend at init
// time.
var (
	newModProduct  = func(n *big.Int) modProduct { return newBigModProduct(n) }
	productBackend = "math/big"
)

// ProductBackend names the arithmetic used for square-root products.
func ProductBackend() string { return productBackend }

type bigModProduct struct {
	n, acc, tmp *big.Int
}

func newBigModProduct(n *big.Int) *bigModProduct {
	return &bigModProduct{n: n, acc: big.NewInt(1), tmp: new(big.Int)}
}

func (b *bigModProduct) Mul(x *big.Int) {
	b.acc.Mul(b.acc, x)
	b.acc.Mod(b.acc, b.n)
}

func (b *bigModProduct) MulPow(p uint32, e int) {
	b.tmp.Exp(big.NewInt(int64(p)), big.NewInt(int64(e)), b.n)
	b.Mul(b.tmp)
}

func (b *bigModProduct) Result() *big.Int { return new(big.Int).Set(b.acc) }

// SquareRoot builds both sides of X² ≡ Z² (mod n) for one dependency.
//
// X is the product of the members' Y mod n. Z is the square root of the
// product of their right-hand sides, rebuilt prime by prime as p^(E/2) from
// the summed exponents E, times L for every combined relation.
//
// Parameters:
//   - fb: The factor base the relations refer to.
//   - rels: All usable relations.
//   - dep: Indices into rels forming a dependency.
//
// Returns:
//   - X, Z: The two square roots modulo n.
//   - error: InvariantError if an exponent sum is odd.
func SquareRoot(fb *FactorBase, rels []Relation, dep []int) (*big.Int, *big.Int, error) {
	n := fb.N
	exps := make([]int, fb.Len())
	x := newModProduct(n)
	z := newModProduct(n)

	for _, idx := range dep {
		rel := rels[idx]
		x.Mul(rel.Y)
		for _, f := range rel.Factors {
			exps[f.Index] += f.Exp
		}
		if rel.Combined {
			z.Mul(new(big.Int).SetUint64(rel.LargePrime))
		}
	}
	for i, e := range exps {
		if e&1 == 1 {
			return nil, nil, apperrors.NewInvariantError("square root", "odd exponent %d at factor-base slot %d", e, i)
		}
		if i == 0 || e == 0 {
			continue
		}
		z.MulPow(fb.Primes[i].P, e/2)
	}
	return x.Result(), z.Result(), nil
}

// ExtractFactor returns gcd(X − Z, n) when it is a nontrivial divisor of n,
// nil when the dependency is degenerate (X ≡ ±Z mod n).
func ExtractFactor(n, x, z *big.Int) *big.Int {
	d := new(big.Int).Sub(x, z)
	d.Mod(d, n)
	g := new(big.Int).GCD(nil, nil, d, n)
	if g.Cmp(bigOne) == 0 || g.Cmp(n) == 0 || g.Sign() == 0 {
		return nil
	}
	return g
}
