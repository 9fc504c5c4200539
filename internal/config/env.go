package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envValue reads EnvPrefix+key with parse. An unset, empty or malformed
// variable yields def.
func envValue[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseUint64(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }

// parseBool accepts true/1/yes and false/0/no, in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// explicitFlags returns the names of the flags given on the command line.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
//
// Supported environment variables:
//   - QSIEVE_N: Comma-separated integers to factor (string)
//   - QSIEVE_TIMEOUT: Run timeout (duration: "5m", "30s")
//   - QSIEVE_WORKERS: Sieve goroutines per factorization (int)
//   - QSIEVE_FB_PRIMES, QSIEVE_SMALL_PRIMES, QSIEVE_SIEVE_SIZE: Tuning overrides (int)
//   - QSIEVE_EXTRA_RELS: Relation surplus (int)
//   - QSIEVE_LP_MULT: Large-prime multiplier (uint64)
//   - QSIEVE_MAX_ATTEMPTS: Retune attempts (int)
//   - QSIEVE_MAX_BITS: Largest accepted input (int)
//   - QSIEVE_PORT: Port for server mode (string)
//   - QSIEVE_LOG_LEVEL: zerolog level (string)
//   - QSIEVE_OUTPUT: Output file path (string)
//   - QSIEVE_CALIBRATION_PROFILE: Path to calibration profile (string)
//   - QSIEVE_SERVER, QSIEVE_JSON, QSIEVE_FULL, QSIEVE_DETAILS, QSIEVE_QUIET,
//     QSIEVE_NO_COLOR, QSIEVE_CALIBRATE: Switches (bool: true/false, 1/0, yes/no)
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet, inputs *string) {
	set := explicitFlags(fs)
	if !set["n"] {
		*inputs = envValue("N", *inputs, parseString)
	}
	if !set["timeout"] {
		config.Timeout = envValue("TIMEOUT", config.Timeout, time.ParseDuration)
	}
	applyNumericOverrides(config, set)
	applyStringOverrides(config, set)
	applyBooleanOverrides(config, set)
}

func applyNumericOverrides(config *AppConfig, set map[string]bool) {
	ints := []struct {
		flag, env string
		dst       *int
	}{
		{"workers", "WORKERS", &config.Workers},
		{"fb-primes", "FB_PRIMES", &config.FBPrimes},
		{"small-primes", "SMALL_PRIMES", &config.SmallPrimes},
		{"sieve-size", "SIEVE_SIZE", &config.SieveSize},
		{"extra-rels", "EXTRA_RELS", &config.ExtraRels},
		{"max-attempts", "MAX_ATTEMPTS", &config.MaxAttempts},
		{"max-bits", "MAX_BITS", &config.MaxBits},
	}
	for _, o := range ints {
		if !set[o.flag] {
			*o.dst = envValue(o.env, *o.dst, strconv.Atoi)
		}
	}
	if !set["lp-mult"] {
		config.LargePrimeMultiplier = envValue("LP_MULT", config.LargePrimeMultiplier, parseUint64)
	}
}

func applyStringOverrides(config *AppConfig, set map[string]bool) {
	strs := []struct {
		flags []string
		env   string
		dst   *string
	}{
		{[]string{"port"}, "PORT", &config.Port},
		{[]string{"log-level"}, "LOG_LEVEL", &config.LogLevel},
		{[]string{"output", "o"}, "OUTPUT", &config.OutputFile},
		{[]string{"calibration-profile"}, "CALIBRATION_PROFILE", &config.CalibrationProfile},
	}
	for _, o := range strs {
		if !anySet(set, o.flags...) {
			*o.dst = envValue(o.env, *o.dst, parseString)
		}
	}
}

func applyBooleanOverrides(config *AppConfig, set map[string]bool) {
	bools := []struct {
		flags []string
		env   string
		dst   *bool
	}{
		{[]string{"server"}, "SERVER", &config.ServerMode},
		{[]string{"json"}, "JSON", &config.JSONOutput},
		{[]string{"full"}, "FULL", &config.FullFactor},
		{[]string{"d", "details"}, "DETAILS", &config.Details},
		{[]string{"quiet", "q"}, "QUIET", &config.Quiet},
		{[]string{"no-color"}, "NO_COLOR", &config.NoColor},
		{[]string{"calibrate"}, "CALIBRATE", &config.Calibrate},
	}
	for _, o := range bools {
		if !anySet(set, o.flags...) {
			*o.dst = envValue(o.env, *o.dst, parseBool)
		}
	}
}

// anySet reports whether one of the aliases of a flag was given.
func anySet(set map[string]bool, names ...string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}
