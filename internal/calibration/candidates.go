package calibration

import (
	"slices"

	"github.com/agbru/qsieve/internal/qsieve"
)

// DefaultBits are the table rows a calibration run re-derives. Larger rows
// take minutes per trial and are left to explicit requests.
var DefaultBits = []int{60, 80, 100, 120}

// fbScales are the factor-base sizes tried around a row, relative to its
// current value.
var fbScales = []float64{0.6, 0.8, 1, 1.25, 1.5}

// minFBMargin keeps candidates clear of the unsieved small primes.
const minFBMargin = 16

// CandidateFBPrimes returns the factor-base sizes to time for row e, in
// increasing order and without duplicates. The current size is always
// included.
func CandidateFBPrimes(e qsieve.TuneEntry) []int {
	floor := e.SmallPrimes + minFBMargin
	out := make([]int, 0, len(fbScales))
	for _, s := range fbScales {
		c := int(float64(e.FBPrimes)*s + 0.5)
		if c < floor {
			c = floor
		}
		out = append(out, c)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
