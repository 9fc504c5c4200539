// Package models defines the result documents shared by the CLI JSON output
// and the HTTP API.
package models

// SieveStats summarizes one sieve attempt.
type SieveStats struct {
	Multiplier        uint32  `json:"multiplier"`
	FactorBaseSize    int     `json:"factor_base_size"`
	LargestPrime      uint32  `json:"largest_prime"`
	AValues           uint64  `json:"a_values"`
	Polynomials       uint64  `json:"polynomials"`
	FullRelations     int     `json:"full_relations"`
	PartialRelations  int     `json:"partial_relations"`
	CombinedRelations int     `json:"combined_relations"`
	Dependencies      int     `json:"dependencies"`
	DurationMs        float64 `json:"duration_ms"`
}

// FactorResult is the outcome of factoring one input.
type FactorResult struct {
	// N is the input in decimal.
	N    string `json:"n"`
	Bits int    `json:"bits"`
	// Factors are in ascending order. With full factorization they are the
	// prime factors with multiplicity, otherwise a divisor and its cofactor.
	Factors []string `json:"factors,omitempty"`
	// Complete is true when every entry of Factors is prime.
	Complete bool `json:"complete"`
	// Method names the first splitting step: "sieve", "trial-division",
	// "perfect-power", "prime" or "unit".
	Method     string       `json:"method,omitempty"`
	Attempts   int          `json:"attempts"`
	DurationMs float64      `json:"duration_ms"`
	Sieve      []SieveStats `json:"sieve,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
