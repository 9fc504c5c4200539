package apperrors

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	t.Parallel()
	err := NewConfigError("invalid value %d for flag %s", 0, "-workers")
	if err.Error() != "invalid value 0 for flag -workers" {
		t.Errorf("unexpected message %q", err.Error())
	}
	var ce ConfigError
	if !errors.As(fmt.Errorf("parse: %w", err), &ce) {
		t.Error("expected ConfigError through wrapping")
	}
}

func TestPreconditionError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"with value", NewPreconditionError("n is prime", big.NewInt(97)), "precondition violated: n is prime (n=97)"},
		{"without value", NewPreconditionError("n is even", nil), "precondition violated: n is even"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			var pe PreconditionError
			if !errors.As(tt.err, &pe) {
				t.Error("errors.As failed for PreconditionError")
			}
		})
	}
}

func TestRetuneError(t *testing.T) {
	t.Parallel()
	cause := errors.New("all dependencies trivial")
	err := fmt.Errorf("attempt 2: %w", NewRetuneError("square root stage", cause))

	if !IsRetune(err) {
		t.Fatal("IsRetune() = false for wrapped RetuneError")
	}
	if !errors.Is(err, cause) {
		t.Error("RetuneError must unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "retune required: square root stage") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if IsRetune(errors.New("other")) {
		t.Error("IsRetune() = true for unrelated error")
	}
	if NewRetuneError("sieve exhausted", nil).Error() != "retune required: sieve exhausted" {
		t.Error("unexpected message without cause")
	}
}

func TestInvariantError(t *testing.T) {
	t.Parallel()
	err := NewInvariantError("relation", "product %d != %d", 6, 7)
	want := "invariant violated in relation: product 6 != 7"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestFactorError(t *testing.T) {
	t.Parallel()
	err := FactorError{N: "8051", Cause: context.Canceled}
	if !errors.Is(err, context.Canceled) {
		t.Error("FactorError must unwrap to its cause")
	}
	if err.Error() != "factoring 8051: context canceled" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestServerError(t *testing.T) {
	t.Parallel()
	cause := errors.New("address in use")
	err := NewServerError("listen failed", cause)
	if err.Error() != "listen failed: address in use" || !errors.Is(err, cause) {
		t.Errorf("unexpected server error %v", err)
	}
	if NewServerError("shutdown", nil).Error() != "shutdown" {
		t.Error("message without cause should be bare")
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()
	if WrapError(nil, "ctx") != nil {
		t.Error("WrapError(nil) should be nil")
	}
	base := errors.New("base")
	err := WrapError(base, "stage %s", "sieve")
	if err.Error() != "stage sieve: base" || !errors.Is(err, base) {
		t.Errorf("unexpected wrap %v", err)
	}
}

func TestIsContextError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{context.Canceled, true},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), true},
		{errors.New("x"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsContextError(tt.err); got != tt.want {
			t.Errorf("IsContextError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()
	if got := NewValidationError("n", "must be odd", "10").Error(); got != "validation error for 'n': must be odd" {
		t.Errorf("unexpected %q", got)
	}
	if got := NewValidationError("", "empty body", nil).Error(); got != "validation error: empty body" {
		t.Errorf("unexpected %q", got)
	}
}
