package qsieve

// sieveArray is the private sieve of one worker.
type sieveArray struct {
	data      []byte
	threshold byte
	next1     []uint32
	next2     []uint32
}

func newSieveArray(params Params, fb *FactorBase) *sieveArray {
	return &sieveArray{
		data:      make([]byte, params.SieveSize),
		threshold: byte(SieveThreshold(params, fb.KN.BitLen(), fb.Max())),
		next1:     make([]uint32, fb.Len()),
		next2:     make([]uint32, fb.Len()),
	}
}

// run fills the array for the current polynomial of p. Every sieved prime
// adds its size at soln1 + j·p and soln2 + j·p. The array is walked in
// BlockSize chunks; next1/next2 carry each prime's first offset into the
// following block.
func (s *sieveArray) run(p *Poly) {
	clear(s.data)
	primes := p.fb.Primes
	for i := range primes {
		s.next1[i], s.next2[i] = p.Soln1[i], p.Soln2[i]
	}
	n := uint32(len(s.data))
	for start := uint32(0); start < n; start += BlockSize {
		end := min(start+BlockSize, n)
		block := s.data[:end]
		for i := 1; i < len(primes); i++ {
			r1 := s.next1[i]
			if r1 == noRoot {
				continue
			}
			pr := primes[i].P
			size := primes[i].Size
			r2 := s.next2[i]
			for ; r1 < end; r1 += pr {
				block[r1] += size
			}
			for ; r2 < end; r2 += pr {
				block[r2] += size
			}
			s.next1[i], s.next2[i] = r1, r2
		}
	}
}

// candidates appends to dst the indices whose byte exceeds the threshold.
func (s *sieveArray) candidates(dst []int) []int {
	dst = dst[:0]
	t := s.threshold
	for i, v := range s.data {
		if v > t {
			dst = append(dst, i)
		}
	}
	return dst
}
