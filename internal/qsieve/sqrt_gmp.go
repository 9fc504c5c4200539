//go:build gmp

// libgmp backend for the square-root products. Opt in with -tags=gmp; it
// needs libgmp-dev (Debian/Ubuntu) or brew's gmp on macOS.

package qsieve

import (
	"math/big"

	"github.com/ncw/gmp"
)

func init() {
	newModProduct = func(n *big.Int) modProduct { return newGMPModProduct(n) }
	productBackend = "gmp"
}

type gmpModProduct struct {
	n, acc, tmp, base, exp *gmp.Int
}

func newGMPModProduct(n *big.Int) *gmpModProduct {
	return &gmpModProduct{
		n:    toGMP(n),
		acc:  gmp.NewInt(1),
		tmp:  gmp.NewInt(0),
		base: gmp.NewInt(0),
		exp:  gmp.NewInt(0),
	}
}

func (g *gmpModProduct) Mul(x *big.Int) {
	g.tmp.SetBytes(x.Bytes())
	if x.Sign() < 0 {
		g.tmp.Neg(g.tmp)
	}
	g.acc.Mul(g.acc, g.tmp)
	g.acc.Mod(g.acc, g.n)
}

func (g *gmpModProduct) MulPow(p uint32, e int) {
	g.base.SetInt64(int64(p))
	g.exp.SetInt64(int64(e))
	g.tmp.Exp(g.base, g.exp, g.n)
	g.acc.Mul(g.acc, g.tmp)
	g.acc.Mod(g.acc, g.n)
}

func (g *gmpModProduct) Result() *big.Int {
	return new(big.Int).SetBytes(g.acc.Bytes())
}

func toGMP(x *big.Int) *gmp.Int {
	return new(gmp.Int).SetBytes(x.Bytes())
}
