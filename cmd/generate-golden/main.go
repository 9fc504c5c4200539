package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"math/rand/v2"
	"os"
	"path/filepath"
)

// GoldenData represents a single test case in the golden file.
type GoldenData struct {
	N string `json:"n"`
	P string `json:"p"`
	Q string `json:"q"`
}

func main() {
	outputDir := flag.String("out", "internal/qsieve/testdata", "Output directory for the golden file")
	seed := flag.Uint64("seed", 1, "Seed of the prime generator")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	filename := filepath.Join(*outputDir, "semiprimes_golden.json")
	file, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	// Balanced semiprimes from the smallest sieve input up to sizes that
	// still factor in a few seconds.
	targets := []int{40, 60, 80, 100, 120, 140}

	data := []GoldenData{{N: "8051", P: "83", Q: "97"}}
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	fmt.Println("Generating golden data...")

	for _, bits := range targets {
		p := randomPrime(rng, bits/2)
		q := randomPrime(rng, bits-bits/2)
		for p.Cmp(q) == 0 {
			q = randomPrime(rng, bits-bits/2)
		}
		if p.Cmp(q) > 0 {
			p, q = q, p
		}
		n := new(big.Int).Mul(p, q)
		data = append(data, GoldenData{N: n.String(), P: p.String(), Q: q.String()})
		fmt.Printf("Generated %d-bit semiprime\n", n.BitLen())
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully generated golden file at %s\n", filename)
}

// randomPrime returns the first prime at or after a random odd integer with
// its top two bits set, so that two such primes multiply to exactly their
// combined bit length. The search restarts if it overflows bits.
func randomPrime(rng *rand.Rand, bits int) *big.Int {
	for {
		c := new(big.Int)
		words := (bits + 31) / 32
		for range words {
			c.Lsh(c, 32)
			c.Or(c, big.NewInt(int64(rng.Uint32())))
		}
		c.Rsh(c, uint(words*32-bits))
		c.SetBit(c, bits-1, 1).SetBit(c, bits-2, 1).SetBit(c, 0, 1)
		for !c.ProbablyPrime(20) {
			c.Add(c, big.NewInt(2))
		}
		if c.BitLen() == bits {
			return c
		}
	}
}
