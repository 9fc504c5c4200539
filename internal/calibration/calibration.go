package calibration

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/agbru/qsieve/internal/config"
	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/logging"
	"github.com/agbru/qsieve/internal/orchestration"
	"github.com/agbru/qsieve/internal/qsieve"
	"github.com/agbru/qsieve/internal/ui"
)

// Options configures a calibration run. Zero values select the defaults.
type Options struct {
	// ProfilePath is where the profile is read and written; empty means
	// DefaultProfilePath.
	ProfilePath string
	// Bits lists the table rows to re-derive; nil means DefaultBits.
	Bits []int
	// Samples is the number of semiprimes timed per candidate.
	Samples int
	// PerTrial bounds a single sieve run.
	PerTrial time.Duration
	// Save writes the updated profile when at least one row was derived.
	Save bool

	// Splitter and Random replace the sieve and the entropy source in tests.
	Splitter orchestration.Splitter
	Random   io.Reader
}

const defaultSamples = 3

// staleProfileAge is the age past which a profile is reported as stale.
const staleProfileAge = 90 * 24 * time.Hour

// trialResult is the timing of one factor-base size.
type trialResult struct {
	FBPrimes int
	Duration time.Duration
	Err      error
}

// RunCalibration re-derives the factor-base size of each requested table row
// by timing the sieve on random semiprimes of that size, and stores the
// winners in the tuning profile. Rows whose candidates all fail keep their
// previous value.
//
// Parameters:
//   - ctx: The context for cancellation and the global timeout.
//   - cfg: The configuration; its tuning overrides apply to every trial.
//   - out: The writer for the report.
//   - logger: The logger for trial failures.
//   - opts: The calibration options.
//
// Returns:
//   - int: The exit code.
func RunCalibration(ctx context.Context, cfg config.AppConfig, out io.Writer, logger logging.Logger, opts Options) int {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	opts = withDefaults(opts, logger)
	theme := ui.GetCurrentTheme()
	fmt.Fprintf(out, "--- Calibration Mode: Re-deriving Factor Base Sizes ---\n")

	profile := NewProfile()
	if existing, err := LoadProfile(opts.ProfilePath); err == nil && existing.IsValid() {
		profile.Entries = existing.Entries
		fmt.Fprintf(out, "Starting from %s\n", existing)
		if existing.IsStale(staleProfileAge) {
			logger.Info("existing calibration profile is stale",
				logging.String("calibrated", existing.CalibratedAt.Format(time.RFC3339)))
		}
	}
	table := profile.Table()
	runner := newCalibrationRunner(ctx, opts.Splitter, opts.PerTrial)

	derived := 0
	start := time.Now()
	for _, bits := range opts.Bits {
		entry := qsieve.LookupTune(bits, table)
		entry.Bits = bits
		samples, err := randomSemiprimes(opts.Random, bits, opts.Samples)
		if err != nil {
			fmt.Fprintf(out, "%s\n", ui.Colorize(theme.Error, "Cannot generate samples: "+err.Error()))
			return apperrors.ExitErrorGeneric
		}

		fmt.Fprintf(out, "\nRow %s bits: timing %d semiprimes per candidate...\n",
			ui.Colorize(theme.Input, fmt.Sprint(bits)), len(samples))
		base := cfg.ApplyOverrides(qsieve.ParamsFromEntry(entry))
		results, best := runner.findBestFBPrimes(base, CandidateFBPrimes(entry), samples)
		if ctx.Err() != nil {
			fmt.Fprintf(out, "\n%s\n", ui.Colorize(theme.Warning, "Calibration interrupted."))
			return apperrors.HandleFactorError(ctx.Err(), time.Since(start), out, ui.ErrorColors{})
		}
		for _, r := range results {
			if r.Err != nil {
				logger.Debug("calibration trial failed",
					logging.Int("bits", bits), logging.Int("fb_primes", r.FBPrimes), logging.Err(r.Err))
			}
		}
		printCalibrationResults(out, results, best)
		if best == 0 {
			fmt.Fprintf(out, "%s\n", ui.Colorize(theme.Warning, "No candidate factored every sample; row left unchanged."))
			continue
		}
		entry.FBPrimes = best
		profile.SetEntry(entry)
		derived++
	}

	if derived == 0 {
		fmt.Fprintf(out, "\n%s\n", ui.Colorize(theme.Error, "Calibration failed: no valid results obtained."))
		return apperrors.ExitErrorGeneric
	}
	printProfileSummary(out, profile, time.Since(start))

	if opts.Save {
		if err := profile.Save(opts.ProfilePath); err != nil {
			fmt.Fprintf(out, "%s\n", ui.Colorize(theme.Warning, "Warning: failed to save profile: "+err.Error()))
		} else {
			fmt.Fprintf(out, "Calibration profile saved to %s\n", ui.Colorize(theme.Stat, opts.ProfilePath))
		}
	}
	return apperrors.ExitSuccess
}

func withDefaults(opts Options, logger logging.Logger) Options {
	if opts.ProfilePath == "" {
		opts.ProfilePath = DefaultProfilePath()
	}
	if len(opts.Bits) == 0 {
		opts.Bits = DefaultBits
	}
	if opts.Samples <= 0 {
		opts.Samples = defaultSamples
	}
	if opts.PerTrial <= 0 {
		opts.PerTrial = time.Minute
	}
	if opts.Splitter == nil {
		opts.Splitter = orchestration.SieveSplitter{Logger: logger}
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}
	return opts
}
