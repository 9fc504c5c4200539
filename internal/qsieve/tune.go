package qsieve

// TuneEntry is one row of the tuning table. An entry applies to inputs whose
// bit length is at most Bits.
type TuneEntry struct {
	Bits        int `json:"bits"`
	KSPrimes    int `json:"ks_primes"`    // odd primes scored by Knuth–Schroeppel
	FBPrimes    int `json:"fb_primes"`    // factor base size, multiplier slot and 2 included
	SmallPrimes int `json:"small_primes"` // leading factor-base entries left out of the sieve
	SieveSize   int `json:"sieve_size"`   // sieve length; offsets run over [-M, M) with M = SieveSize/2
}

// defaultTuneTable is calibration data, not behavior. Two rows (130 and 190
// bits) carry factor-base sizes that break the otherwise monotone trend; the
// calibration package can re-derive any row and override it via a profile.
var defaultTuneTable = []TuneEntry{
	{40, 50, 60, 5, 6000},
	{50, 50, 80, 5, 7000},
	{60, 50, 100, 5, 8000},
	{70, 50, 300, 6, 12000},
	{80, 50, 400, 6, 16000},
	{90, 50, 500, 7, 20000},
	{100, 100, 650, 7, 26000},
	{110, 100, 800, 7, 30000},
	{120, 100, 1000, 7, 40000},
	{130, 100, 3600, 9, 64000},
	{140, 100, 1200, 8, 56000},
	{150, 100, 1800, 8, 64000},
	{160, 150, 2000, 8, 80000},
	{170, 150, 2200, 9, 128000},
	{180, 150, 2400, 9, 128000},
	{190, 150, 5400, 10, 128000},
	{200, 150, 3600, 10, 128000},
	{210, 150, 6000, 12, 128000},
	{220, 200, 7500, 15, 128000},
	{230, 200, 8500, 17, 128000},
	{240, 200, 18000, 19, 128000},
	{250, 200, 24000, 19, 128000},
	{260, 200, 55000, 25, 256000},
	{270, 200, 64000, 27, 256000},
}

// DefaultTuneTable returns a copy of the built-in tuning table.
func DefaultTuneTable() []TuneEntry {
	out := make([]TuneEntry, len(defaultTuneTable))
	copy(out, defaultTuneTable)
	return out
}

// LookupTune returns the first entry of table whose Bits is at least bits,
// or the last entry for inputs larger than the table covers. A nil or empty
// table falls back to the built-in one. The table must be sorted by Bits.
func LookupTune(bits int, table []TuneEntry) TuneEntry {
	if len(table) == 0 {
		table = defaultTuneTable
	}
	for _, e := range table {
		if bits <= e.Bits {
			return e
		}
	}
	return table[len(table)-1]
}

// MergeTuneTable overlays entries onto the built-in table, replacing rows
// with the same Bits and inserting new ones in order.
func MergeTuneTable(overrides []TuneEntry) []TuneEntry {
	merged := DefaultTuneTable()
	for _, o := range overrides {
		replaced := false
		for i := range merged {
			if merged[i].Bits == o.Bits {
				merged[i] = o
				replaced = true
				break
			}
		}
		if replaced {
			continue
		}
		pos := len(merged)
		for i := range merged {
			if merged[i].Bits > o.Bits {
				pos = i
				break
			}
		}
		merged = append(merged, TuneEntry{})
		copy(merged[pos+1:], merged[pos:])
		merged[pos] = o
	}
	return merged
}
