package qsieve

import (
	"math/big"

	"github.com/agbru/qsieve/internal/arith"
	apperrors "github.com/agbru/qsieve/internal/errors"
)

// noRoot marks a factor-base slot that is not sieved with the current
// polynomial: small primes, primes dividing k and primes dividing A.
const noRoot = ^uint32(0)

// Poly is the polynomial state of one worker. It borrows the factor base and
// the shared A selector, and owns everything derived from the current A.
//
// For the current polynomial Q(x) = (Ax+B)² − kn = A·g(x) with
// g(x) = Ax² + 2Bx + C, sieve index i stands for x = i − M, and
// Soln1[j], Soln2[j] are the two indices in [0, p_j) where p_j divides g.
type Poly struct {
	fb          *FactorBase
	sel         *aSelector
	M           int
	smallPrimes int

	A, A0, B, C *big.Int
	AInd        []int      // factor-base slots of A0's primes, then q0
	BTerms      []*big.Int // B = Σ ±BTerms[l], BTerms[l]² ≡ kn (mod q_l)
	AInv2B      [][]uint32 // AInv2B[j][i] = 2·BTerms[j]·A⁻¹ mod p_i
	Soln1       []uint32
	Soln2       []uint32

	LowBound, UppBound *big.Int

	aMask []bool
	gray  GrayCode
	tmp   *big.Int
}

func newPoly(fb *FactorBase, sel *aSelector, params Params) *Poly {
	n := fb.Len()
	return &Poly{
		fb:          fb,
		sel:         sel,
		M:           params.SieveSize / 2,
		smallPrimes: params.SmallPrimes,
		B:           new(big.Int),
		C:           new(big.Int),
		Soln1:       make([]uint32, n),
		Soln2:       make([]uint32, n),
		aMask:       make([]bool, n),
		tmp:         new(big.Int),
	}
}

// TargetA returns the A value the selector aims for.
func (p *Poly) TargetA() *big.Int { return p.sel.target }

// CurrPoly returns the Gray-code rank of the current polynomial within its A.
func (p *Poly) CurrPoly() uint64 { return p.gray.Rank() }

// PerA returns how many polynomials share the current A.
func (p *Poly) PerA() uint64 { return p.gray.Len() }

// Advance moves to the next polynomial: the next Gray-code B when one is
// left, a fresh A otherwise.
//
// Returns:
//   - newA: true when a new A was drawn.
//   - err: ErrAExhausted, or an InvariantError if C is not integral.
func (p *Poly) Advance() (newA bool, err error) {
	if p.A != nil && p.nextB() {
		return false, p.computeC()
	}
	return true, p.nextA()
}

// nextA draws a new A and performs the expensive per-A initialization: B
// terms, A⁻¹ mod p, AInv2B and the roots of the first polynomial.
func (p *Poly) nextA() error {
	choice, err := p.sel.next()
	if err != nil {
		return err
	}
	for _, i := range p.AInd {
		p.aMask[i] = false
	}
	p.A, p.A0, p.AInd = choice.A, choice.A0, choice.ind
	p.LowBound, p.UppBound = choice.low, choice.upp
	for _, i := range p.AInd {
		p.aMask[i] = true
	}
	terms := len(p.AInd)

	// B_l = (A/q_l)·γ_l with γ_l = sqrt(kn)·(A/q_l)⁻¹ mod q_l, so
	// B ≡ ±sqrt(kn) modulo every prime of A and B² ≡ kn (mod A).
	p.BTerms = p.BTerms[:0]
	p.B.SetInt64(0)
	al := new(big.Int)
	for _, slot := range p.AInd {
		q := p.fb.Primes[slot].P
		al.Quo(p.A, big.NewInt(int64(q)))
		inv := arith.InvMod(arith.ModBig(al, q), q)
		gamma := uint32(uint64(p.fb.Sqrts[slot]) * uint64(inv) % uint64(q))
		if gamma > q/2 {
			gamma = q - gamma
		}
		term := new(big.Int).Mul(al, big.NewInt(int64(gamma)))
		p.BTerms = append(p.BTerms, term)
		p.B.Add(p.B, term)
	}

	if cap(p.AInv2B) < terms {
		p.AInv2B = make([][]uint32, terms)
	}
	p.AInv2B = p.AInv2B[:terms]
	for j := 1; j < terms-1; j++ {
		if len(p.AInv2B[j]) != p.fb.Len() {
			p.AInv2B[j] = make([]uint32, p.fb.Len())
		}
	}

	for i := 1; i < p.fb.Len(); i++ {
		if !p.sieved(i) {
			p.Soln1[i], p.Soln2[i] = noRoot, noRoot
			continue
		}
		prime := p.fb.Primes[i].P
		P := uint64(prime)
		ainv := uint64(arith.InvMod(arith.ModBig(p.A, prime), prime))
		bmod := uint64(arith.ModBig(p.B, prime))
		t := uint64(p.fb.Sqrts[i])
		m := uint64(p.M) % P
		p.Soln1[i] = uint32((ainv*((t+P-bmod)%P) + m) % P)
		p.Soln2[i] = uint32((ainv*((2*P-t-bmod)%P) + m) % P)
		for j := 1; j < terms-1; j++ {
			bj := uint64(arith.ModBig(p.BTerms[j], prime))
			p.AInv2B[j][i] = uint32(2 * bj % P * ainv % P)
		}
	}
	p.Soln1[0], p.Soln2[0] = noRoot, noRoot

	// The first A0 term and q0 keep a positive sign; B and -B give the
	// same relations.
	p.gray = NewGrayCode(max(terms-2, 0))
	return p.computeC()
}

// nextB applies one Gray-code transition: it flips the sign of one B term
// and shifts every root by ±AInv2B without any modular inversion.
func (p *Poly) nextB() bool {
	bit, negative, ok := p.gray.Next()
	if !ok {
		return false
	}
	j := bit + 1
	p.tmp.Lsh(p.BTerms[j], 1)
	delta := p.AInv2B[j]
	if negative {
		p.B.Sub(p.B, p.tmp)
	} else {
		p.B.Add(p.B, p.tmp)
	}
	for i := 1; i < len(p.Soln1); i++ {
		if p.Soln1[i] == noRoot {
			continue
		}
		P := p.fb.Primes[i].P
		d := delta[i]
		if !negative {
			d = P - d
		}
		p.Soln1[i] = addMod(p.Soln1[i], d, P)
		p.Soln2[i] = addMod(p.Soln2[i], d, P)
	}
	return true
}

// computeC sets C = (B² − kn)/A, which must be exact.
func (p *Poly) computeC() error {
	p.tmp.Mul(p.B, p.B)
	p.tmp.Sub(p.tmp, p.fb.KN)
	rem := new(big.Int)
	p.C.QuoRem(p.tmp, p.A, rem)
	if rem.Sign() != 0 {
		return apperrors.NewInvariantError("polynomial", "B² − kn not divisible by A (A=%s, B=%s)", p.A, p.B)
	}
	return nil
}

// sieved reports whether slot i takes part in sieving with the current A.
func (p *Poly) sieved(i int) bool {
	return i >= p.smallPrimes && i >= 2 && !p.aMask[i] && !p.fb.dividesKN(i)
}

func addMod(a, b, m uint32) uint32 {
	s := uint64(a) + uint64(b)
	if s >= uint64(m) {
		s -= uint64(m)
	}
	return uint32(s)
}
