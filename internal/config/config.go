// Package config provides the configuration management for the qsieve
// application. It defines the configuration structure, parses command-line
// arguments, applies QSIEVE_ environment overrides and validates the result.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/qsieve"
)

const (
	// EnvPrefix is the prefix for all environment variables used by qsieve.
	// Environment variables provide an alternative to CLI flags for configuration,
	// following the 12-Factor App methodology.
	EnvPrefix = "QSIEVE_"
)

// Default configuration values.
// These can be overridden via command-line flags or environment variables.
const (
	// DefaultTimeout is the default limit for one run.
	DefaultTimeout = 10 * time.Minute
	// DefaultPort is the default server port.
	DefaultPort = "8080"
	// DefaultWorkers keeps the sieve single-threaded.
	DefaultWorkers = 1
	// DefaultMaxAttempts is the number of sieve attempts per composite,
	// the first one included, before giving up.
	DefaultMaxAttempts = 5
	// DefaultMaxBits is the largest input accepted.
	DefaultMaxBits = 330
	// DefaultLogLevel is the default zerolog level.
	DefaultLogLevel = "warn"
)

// AppConfig aggregates the application's configuration parameters, parsed from
// command-line flags and environment variables.
type AppConfig struct {
	// Inputs are the integers to factor, in decimal.
	Inputs []string
	// Timeout sets the maximum duration of the whole run.
	Timeout time.Duration
	// Workers is the number of sieve goroutines per factorization.
	Workers int

	// FBPrimes, SmallPrimes and SieveSize override the tuning table when
	// nonzero.
	FBPrimes    int
	SmallPrimes int
	SieveSize   int
	// ExtraRels is the relation surplus over the factor-base size.
	ExtraRels int
	// LargePrimeMultiplier bounds partial-relation cofactors.
	LargePrimeMultiplier uint64
	// MaxAttempts bounds the retune loop.
	MaxAttempts int
	// MaxBits rejects larger inputs.
	MaxBits int

	// FullFactor, if true, splits every input into prime factors instead of
	// stopping at the first nontrivial divisor.
	FullFactor bool
	// Details, if true, prints sieve statistics.
	Details bool
	// LogLevel is the zerolog level name.
	LogLevel string

	// Calibrate, if true, re-derives the tuning table on this machine and
	// saves it as a calibration profile.
	Calibrate bool
	// CalibrationProfile is the path to a calibration profile file.
	// If empty, uses the default path (~/.qsieve_tuning.json).
	CalibrationProfile string

	// JSONOutput, if true, outputs the results in JSON format.
	JSONOutput bool
	// ServerMode, if true, starts the application as an HTTP server.
	ServerMode bool
	// Port specifies the port to listen on in server mode.
	Port string
	// NoColor, if true, disables all color output in the CLI.
	// Also respects the NO_COLOR environment variable.
	NoColor bool
	// OutputFile, if specified, saves the results to this file path.
	OutputFile string
	// Quiet mode - minimal output for scripting purposes.
	Quiet bool
	// Completion, if set, generates a shell completion script for the
	// specified shell: "bash", "zsh", "fish" or "powershell".
	Completion string
}

// ParseInputs converts Inputs to integers.
//
// Returns:
//   - []*big.Int: The parsed inputs, in order.
//   - error: A ConfigError naming the first malformed input.
func (c AppConfig) ParseInputs() ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(c.Inputs))
	for _, s := range c.Inputs {
		n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
		if !ok || n.Sign() <= 0 {
			return nil, apperrors.NewConfigError("invalid input %q: expected a positive decimal integer", s)
		}
		out = append(out, n)
	}
	return out, nil
}

// ApplyOverrides returns p with the nonzero tuning overrides of the
// configuration applied.
func (c AppConfig) ApplyOverrides(p qsieve.Params) qsieve.Params {
	if c.FBPrimes > 0 {
		p.FBPrimes = c.FBPrimes
	}
	if c.SmallPrimes > 0 {
		p.SmallPrimes = c.SmallPrimes
	}
	if c.SieveSize > 0 {
		p.SieveSize = c.SieveSize
	}
	if c.ExtraRels > 0 {
		p.ExtraRels = c.ExtraRels
	}
	if c.LargePrimeMultiplier > 0 {
		p.LargePrimeMultiplier = c.LargePrimeMultiplier
	}
	if c.Workers > 0 {
		p.Workers = c.Workers
	}
	return p
}

// Validate checks the semantic consistency of the configuration parameters.
//
// Returns:
//   - error: An error of type ConfigError if the configuration is invalid,
//     nil otherwise.
func (c AppConfig) Validate() error {
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("timeout value must be strictly positive")
	}
	if c.Workers < 1 {
		return apperrors.NewConfigError("workers must be at least 1: %d", c.Workers)
	}
	if c.FBPrimes < 0 || c.SmallPrimes < 0 || c.SieveSize < 0 || c.ExtraRels < 0 {
		return apperrors.NewConfigError("tuning overrides cannot be negative")
	}
	if c.SieveSize%2 != 0 {
		return apperrors.NewConfigError("sieve size must be even: %d", c.SieveSize)
	}
	if c.MaxAttempts < 1 {
		return apperrors.NewConfigError("max attempts must be at least 1: %d", c.MaxAttempts)
	}
	if c.MaxBits < qsieve.MinBits {
		return apperrors.NewConfigError("max bits must be at least %d: %d", qsieve.MinBits, c.MaxBits)
	}
	switch c.Completion {
	case "", "bash", "zsh", "fish", "powershell":
	default:
		return apperrors.NewConfigError("unsupported shell for completion: '%s'", c.Completion)
	}
	if len(c.Inputs) == 0 && !c.ServerMode && !c.Calibrate && c.Completion == "" {
		return apperrors.NewConfigError("no input: pass integers as arguments or with -n")
	}
	inputs, err := c.ParseInputs()
	if err != nil {
		return err
	}
	for _, n := range inputs {
		if n.BitLen() > c.MaxBits {
			return apperrors.NewConfigError("input of %d bits exceeds max bits %d", n.BitLen(), c.MaxBits)
		}
	}
	return nil
}

// ParseConfig parses the command-line arguments and populates an AppConfig
// struct. It defines all the command-line flags, sets their default values,
// applies environment overrides and validates the result.
//
// Positional arguments and the comma-separated -n flag both provide inputs.
//
// Parameters:
//   - programName: The name of the program, used in the usage message.
//   - args: The command-line arguments (typically os.Args[1:]).
//   - errorWriter: Where parsing errors and usage information are printed.
//
// Returns:
//   - AppConfig: The populated configuration struct.
//   - error: An error if flag parsing fails or validation fails.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)

	config := AppConfig{}
	var inputs string
	fs.StringVar(&inputs, "n", "", "Comma-separated integers to factor.")
	fs.DurationVar(&config.Timeout, "timeout", DefaultTimeout, "Maximum execution time for the whole run.")
	fs.IntVar(&config.Workers, "workers", DefaultWorkers, "Sieve goroutines per factorization.")
	fs.IntVar(&config.FBPrimes, "fb-primes", 0, "Factor base size (0 uses the tuning table).")
	fs.IntVar(&config.SmallPrimes, "small-primes", 0, "Leading factor-base primes left out of the sieve (0 uses the tuning table).")
	fs.IntVar(&config.SieveSize, "sieve-size", 0, "Sieve length, even (0 uses the tuning table).")
	fs.IntVar(&config.ExtraRels, "extra-rels", qsieve.DefaultExtraRels, "Relations collected beyond the factor-base size.")
	fs.Uint64Var(&config.LargePrimeMultiplier, "lp-mult", qsieve.DefaultLargePrimeMultiplier, "Large-prime bound as a multiple of the largest factor-base prime.")
	fs.IntVar(&config.MaxAttempts, "max-attempts", DefaultMaxAttempts, "Sieve attempts per composite before giving up.")
	fs.IntVar(&config.MaxBits, "max-bits", DefaultMaxBits, "Largest accepted input, in bits.")
	fs.BoolVar(&config.FullFactor, "full", false, "Split inputs into prime factors.")
	fs.BoolVar(&config.Details, "d", false, "Display sieve statistics.")
	fs.BoolVar(&config.Details, "details", false, "Alias for -d.")
	fs.StringVar(&config.LogLevel, "log-level", DefaultLogLevel, "Log level: debug, info, warn, error.")
	fs.BoolVar(&config.Calibrate, "calibrate", false, "Re-derive the tuning table on this machine and save it.")
	fs.StringVar(&config.CalibrationProfile, "calibration-profile", "", "Path to calibration profile file (default: ~/.qsieve_tuning.json).")
	fs.BoolVar(&config.JSONOutput, "json", false, "Output results in JSON format.")
	fs.BoolVar(&config.ServerMode, "server", false, "Start in HTTP server mode.")
	fs.StringVar(&config.Port, "port", DefaultPort, "Port to listen on in server mode.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output (also respects NO_COLOR env var).")
	fs.StringVar(&config.OutputFile, "output", "", "Output file path for the results.")
	fs.StringVar(&config.OutputFile, "o", "", "Output file path (shorthand).")
	fs.BoolVar(&config.Quiet, "quiet", false, "Quiet mode - minimal output for scripts.")
	fs.BoolVar(&config.Quiet, "q", false, "Quiet mode (shorthand).")
	fs.StringVar(&config.Completion, "completion", "", "Generate shell completion script (bash, zsh, fish, powershell).")

	setCustomUsage(fs)

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}

	// Apply environment variable overrides for flags not explicitly set
	applyEnvOverrides(&config, fs, &inputs)

	config.Inputs = splitInputs(inputs)
	config.Inputs = append(config.Inputs, fs.Args()...)
	config.LogLevel = strings.ToLower(config.LogLevel)
	if err := config.Validate(); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		fs.Usage()
		return AppConfig{}, errors.Join(errors.New("invalid configuration"), err)
	}
	return config, nil
}

func splitInputs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setCustomUsage prints the usage header before the flag defaults.
func setCustomUsage(fs *flag.FlagSet) {
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [flags] N [N ...]\n\n", fs.Name())
		fmt.Fprintln(out, "Factors each N with the self-initializing quadratic sieve.")
		fmt.Fprintf(out, "Every flag can also be set through %s<FLAG> (e.g. %sTIMEOUT=2m).\n\n", EnvPrefix, EnvPrefix)
		fmt.Fprintln(out, "Flags:")
		fs.PrintDefaults()
	}
}
