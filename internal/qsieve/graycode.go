package qsieve

import "math/bits"

// GrayCode enumerates the sign patterns of the flippable B terms of one A.
//
// Rank r maps to the pattern r ^ (r >> 1). Moving from rank r to r+1 flips
// exactly one bit, the one at position trailing_zeros(r+1). A set bit means
// the corresponding B term enters B with a negative sign.
type GrayCode struct {
	rank  uint64
	width int
}

// NewGrayCode returns the enumeration over width flippable terms, positioned
// at rank 0 (all terms positive). It yields 1<<width patterns.
func NewGrayCode(width int) GrayCode {
	return GrayCode{width: width}
}

// Rank returns the current rank (curr_poly).
func (g *GrayCode) Rank() uint64 { return g.rank }

// Len returns the number of patterns, 1<<width.
func (g *GrayCode) Len() uint64 { return 1 << uint(g.width) }

// Code returns the current sign pattern.
func (g *GrayCode) Code() uint64 { return g.rank ^ (g.rank >> 1) }

// Negative reports whether term j currently carries a negative sign.
func (g *GrayCode) Negative(j int) bool { return g.Code()>>uint(j)&1 == 1 }

// Next advances to the next rank.
//
// Returns:
//   - term: The index of the flipped term.
//   - negative: true when the flipped term became negative.
//   - ok: false once all patterns are consumed; the state is unchanged.
func (g *GrayCode) Next() (term int, negative bool, ok bool) {
	if g.rank+1 >= g.Len() {
		return 0, false, false
	}
	g.rank++
	term = bits.TrailingZeros64(g.rank)
	return term, g.Negative(term), true
}
