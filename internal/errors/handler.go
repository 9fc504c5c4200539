package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ColorProvider supplies terminal color codes without importing the ui package.
type ColorProvider interface {
	Yellow() string
	Red() string
	Reset() string
}

// DefaultColorProvider provides no color codes.
type DefaultColorProvider struct{}

func (DefaultColorProvider) Yellow() string { return "" }
func (DefaultColorProvider) Red() string    { return "" }
func (DefaultColorProvider) Reset() string  { return "" }

// HandleFactorError prints a status line for a failed factorization and
// returns the matching exit code.
//
// Parameters:
//   - err: The error that occurred (nil means success).
//   - duration: Elapsed time before the failure, omitted when zero.
//   - out: Destination of the status line.
//   - colors: Color codes, nil for plain output.
//
// Returns:
//   - int: The exit code for the error class.
func HandleFactorError(err error, duration time.Duration, out io.Writer, colors ColorProvider) int {
	if err == nil {
		return ExitSuccess
	}
	if colors == nil {
		colors = DefaultColorProvider{}
	}

	suffix := ""
	if duration > 0 {
		suffix = fmt.Sprintf(" after %s%s%s", colors.Yellow(), duration, colors.Reset())
	}

	var (
		ce ConfigError
		pe PreconditionError
		ie InvariantError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(out, "Status: Failure (Timeout). The execution limit was reached%s.\n", suffix)
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "%sStatus: Canceled%s.%s\n", colors.Yellow(), suffix, colors.Reset())
		return ExitErrorCanceled
	case errors.As(err, &pe):
		fmt.Fprintf(out, "Status: Rejected. %v\n", err)
		return ExitErrorPrecondition
	case errors.As(err, &ce):
		fmt.Fprintf(out, "Status: Configuration error. %v\n", err)
		return ExitErrorConfig
	case errors.As(err, &ie):
		fmt.Fprintf(out, "%sStatus: Aborted. %v%s\n", colors.Red(), err, colors.Reset())
		return ExitErrorInvariant
	case IsRetune(err):
		fmt.Fprintf(out, "Status: No factor found%s. %v\n", suffix, err)
		return ExitErrorRetune
	}
	fmt.Fprintf(out, "Status: Failure. An unexpected error occurred: %v\n", err)
	return ExitErrorGeneric
}
