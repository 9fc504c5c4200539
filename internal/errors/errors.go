// Package apperrors defines the error taxonomy of the factoring engine and
// its driver. Each class maps to a distinct exit status so scripts can tell a
// rejected input from an attempt that merely needs larger parameters.
//
// All types implement Unwrap where a cause exists, so errors.Is and errors.As
// work through fmt.Errorf("...: %w") chains.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Exit statuses returned by the qsieve binary.
const (
	ExitSuccess           = 0   // Factorization completed.
	ExitErrorGeneric      = 1   // Unexpected failure.
	ExitErrorTimeout      = 2   // The execution limit was reached.
	ExitErrorRetune       = 3   // Every attempt ended without a nontrivial factor.
	ExitErrorConfig       = 4   // Invalid flags or environment.
	ExitErrorPrecondition = 5   // Input rejected before sieving (prime, even, too small).
	ExitErrorInvariant    = 6   // A numeric invariant was violated; the attempt was aborted.
	ExitErrorCanceled     = 130 // Interrupted (SIGINT).
)

// ConfigError represents invalid user configuration (flags, environment).
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// PreconditionError reports an input the engine refuses to process: even,
// prime, a perfect square, or too small for a meaningful factor base.
// The caller is expected to fall back to another method.
type PreconditionError struct {
	// Reason is a short description such as "n is prime".
	Reason string
	// Value is the rejected input rendered in decimal.
	Value string
}

func (e PreconditionError) Error() string {
	if e.Value == "" {
		return "precondition violated: " + e.Reason
	}
	return fmt.Sprintf("precondition violated: %s (n=%s)", e.Reason, e.Value)
}

// NewPreconditionError creates a PreconditionError.
func NewPreconditionError(reason string, value fmt.Stringer) error {
	v := ""
	if value != nil {
		v = value.String()
	}
	return PreconditionError{Reason: reason, Value: v}
}

// RetuneError is the expected probabilistic failure of one attempt: the
// sieve ran out of polynomials or every dependency produced a trivial gcd.
// The driver retries with larger parameters.
type RetuneError struct {
	// Reason describes which stage gave up.
	Reason string
	// Cause is an optional underlying error.
	Cause error
}

func (e RetuneError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("retune required: %s: %v", e.Reason, e.Cause)
	}
	return "retune required: " + e.Reason
}

func (e RetuneError) Unwrap() error { return e.Cause }

// NewRetuneError creates a RetuneError.
func NewRetuneError(reason string, cause error) error {
	return RetuneError{Reason: reason, Cause: cause}
}

// IsRetune reports whether err asks the driver to retry with new parameters.
func IsRetune(err error) bool {
	var re RetuneError
	return errors.As(err, &re)
}

// InvariantError reports a numeric invariant violation, for instance a
// relation whose exponent vector does not reproduce Y² − kn. The attempt
// is aborted rather than risking a wrong factor.
type InvariantError struct {
	// Stage names the component that detected the violation.
	Stage string
	// Detail describes the mismatch.
	Detail string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Stage, e.Detail)
}

// NewInvariantError creates an InvariantError with a formatted detail.
func NewInvariantError(stage, format string, a ...any) error {
	return InvariantError{Stage: stage, Detail: fmt.Sprintf(format, a...)}
}

// FactorError wraps a failure of a factorization request while preserving
// the original cause and the input it concerned.
type FactorError struct {
	// N is the input in decimal.
	N string
	// Cause is the underlying error.
	Cause error
}

func (e FactorError) Error() string { return fmt.Sprintf("factoring %s: %v", e.N, e.Cause) }

func (e FactorError) Unwrap() error { return e.Cause }

// ServerError represents errors that occur in the HTTP server component.
type ServerError struct {
	Message string
	Cause   error
}

func (e ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e ServerError) Unwrap() error { return e.Cause }

// NewServerError creates a new ServerError with a message and optional cause.
func NewServerError(message string, cause error) error {
	return ServerError{Message: message, Cause: cause}
}

// WrapError wraps err with a formatted context message, or returns nil when
// err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsContextError reports whether err is a cancellation or deadline error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ValidationError represents an invalid request or configuration field.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}
