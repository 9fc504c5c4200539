// Package orchestration drives factorizations: it screens each input, runs
// the sieve with a retune ladder, fans several inputs out concurrently and
// reports the outcome.
package orchestration

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"runtime"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/qsieve/internal/cli"
	"github.com/agbru/qsieve/internal/config"
	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/qsieve"
	"github.com/agbru/qsieve/internal/ui"
	"github.com/agbru/qsieve/pkg/models"
)

// Result encapsulates the outcome of factoring one input.
type Result struct {
	// Index is the position of the input on the command line.
	Index int
	// N is the input. It is nil when the input was rejected before parsing.
	N *big.Int
	// Factors are in ascending order; nil on failure.
	Factors []*big.Int
	// Complete is true when every factor is prime.
	Complete bool
	// Method is the first splitting step.
	Method string
	// Attempts counts sieve attempts over all recursive splits.
	Attempts int
	// Stats holds one entry per sieve attempt.
	Stats []qsieve.Stats
	// Duration is the wall time spent on this input.
	Duration time.Duration
	// Err is any error that ended the factorization.
	Err error
}

// Model converts the result to its JSON document.
func (r Result) Model() models.FactorResult {
	m := models.FactorResult{
		Complete:   r.Complete,
		Method:     r.Method,
		Attempts:   r.Attempts,
		DurationMs: float64(r.Duration.Microseconds()) / 1000,
	}
	if r.N != nil {
		m.N = r.N.String()
		m.Bits = r.N.BitLen()
	}
	for _, f := range r.Factors {
		m.Factors = append(m.Factors, f.String())
	}
	for _, st := range r.Stats {
		m.Sieve = append(m.Sieve, models.SieveStats{
			Multiplier:        st.Multiplier,
			FactorBaseSize:    st.FactorBaseSize,
			LargestPrime:      st.LargestPrime,
			AValues:           st.AValues,
			Polynomials:       st.Polynomials,
			FullRelations:     st.Relations.Full,
			PartialRelations:  st.Relations.Partial,
			CombinedRelations: st.Relations.Combined,
			Dependencies:      st.Dependencies,
			DurationMs:        float64(st.Duration.Microseconds()) / 1000,
		})
	}
	if r.Err != nil {
		m.Error = r.Err.Error()
	}
	return m
}

// ProgressBufferMultiplier defines the buffer size multiplier for the progress
// channel. Updates beyond the buffer are dropped rather than blocking a
// sieve worker.
const ProgressBufferMultiplier = 64

// ExecuteFactorizations factors every input concurrently and returns the
// results in input order.
//
// Progress of each input is forwarded to the spinner display on out; pass
// io.Discard to run silently.
//
// Parameters:
//   - ctx: The context for managing cancellation and deadlines.
//   - f: The driver; its Progress subject is replaced for the run.
//   - inputs: The integers to factor.
//   - out: The io.Writer for displaying progress updates.
//
// Returns:
//   - []Result: One result per input.
func ExecuteFactorizations(ctx context.Context, f *Factorizer, inputs []*big.Int, out io.Writer) []Result {
	results := make([]Result, len(inputs))
	progressChan := make(chan qsieve.ProgressUpdate, len(inputs)*ProgressBufferMultiplier)

	driver := *f
	driver.Progress = qsieve.NewProgressSubject()
	driver.Progress.Register(qsieve.NewChannelObserver(progressChan))

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go cli.DisplayProgress(&displayWg, progressChan, len(inputs), out)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, n := range inputs {
		g.Go(func() error {
			results[i] = driver.Factor(ctx, n, i)
			return nil
		})
	}

	_ = g.Wait()
	close(progressChan)
	displayWg.Wait()

	return results
}

// AnalyzeResults prints a summary table of the results and, with details
// enabled, the sieve statistics of each input.
//
// Parameters:
//   - results: The results to report, in input order.
//   - cfg: The application configuration.
//   - out: The io.Writer for the summary report.
//
// Returns:
//   - int: ExitSuccess, or the exit code of the first failure.
func AnalyzeResults(results []Result, cfg config.AppConfig, out io.Writer) int {
	theme := ui.GetCurrentTheme()
	var firstFailure *Result
	successCount := 0

	fmt.Fprintf(out, "\n--- Factorization Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "%sInput%s\t%sBits%s\t%sFactors%s\t%sMethod%s\t%sDuration%s\t%sStatus%s\n",
		theme.Bold, theme.Reset, theme.Bold, theme.Reset, theme.Bold, theme.Reset,
		theme.Bold, theme.Reset, theme.Bold, theme.Reset, theme.Bold, theme.Reset)

	for i := range results {
		res := &results[i]
		input, bits := "?", 0
		if res.N != nil {
			input, bits = cli.TruncateDigits(res.N.String()), res.N.BitLen()
		}
		var status, factors string
		if res.Err != nil {
			status = ui.Colorize(theme.Error, "Failure")
			factors = "-"
			if firstFailure == nil {
				firstFailure = res
			}
		} else {
			successCount++
			status = ui.Colorize(theme.Factor, "Prime factorization")
			if !res.Complete {
				status = ui.Colorize(theme.Factor, "Split")
			}
			factors = formatFactors(res.Factors)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			ui.Colorize(theme.Input, input), bits,
			ui.Colorize(theme.Factor, factors),
			res.Method,
			ui.Colorize(theme.Stat, cli.FormatExecutionDuration(res.Duration)),
			status)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}

	if cfg.Details {
		for _, res := range results {
			if res.Err == nil {
				cli.DisplayDetails(res.Model(), out)
			}
		}
	}

	if firstFailure != nil {
		fmt.Fprintf(out, "\nGlobal Status: %d of %d inputs factored.\n", successCount, len(results))
		return apperrors.HandleFactorError(firstFailure.Err, firstFailure.Duration, out, ui.ErrorColors{})
	}
	fmt.Fprintf(out, "\nGlobal Status: Success. All inputs factored.\n")
	return apperrors.ExitSuccess
}

// ExitCode returns the exit code of the first failed result without
// printing anything.
func ExitCode(results []Result) int {
	for _, res := range results {
		if res.Err != nil {
			return apperrors.HandleFactorError(res.Err, 0, io.Discard, nil)
		}
	}
	return apperrors.ExitSuccess
}

// formatFactors writes factors as a product, grouping repeated ones as
// powers: 3^2 × 5.
func formatFactors(factors []*big.Int) string {
	var parts []string
	for i := 0; i < len(factors); {
		j := i + 1
		for j < len(factors) && factors[j].Cmp(factors[i]) == 0 {
			j++
		}
		s := cli.TruncateDigits(factors[i].String())
		if j-i > 1 {
			s = fmt.Sprintf("%s^%d", s, j-i)
		}
		parts = append(parts, s)
		i = j
	}
	return strings.Join(parts, " × ")
}
