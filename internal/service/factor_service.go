// Package service exposes factorization behind an interface for the HTTP
// layer, with the input limits applied to untrusted requests.
package service

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"

	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/orchestration"
	"github.com/agbru/qsieve/internal/qsieve"
)

var (
	// ErrMaxBitsExceeded is returned when n is larger than the configured limit.
	ErrMaxBitsExceeded = errors.New("maximum input size exceeded")
)

// Service defines the interface for factorization services.
type Service interface {
	// Factor factors n.
	//
	// Parameters:
	//   - ctx: The context for cancellation.
	//   - n: The input.
	//
	// Returns:
	//   - orchestration.Result: The outcome, populated even on failure.
	//   - error: ErrMaxBitsExceeded, or the factorization error.
	Factor(ctx context.Context, n *big.Int) (orchestration.Result, error)
}

// FactorService runs requests through a Factorizer. Each request gets its
// own progress index, exported on the qsieve_relation_progress gauge while
// it runs.
type FactorService struct {
	factorizer *orchestration.Factorizer
	maxBits    int
	metrics    *qsieve.MetricsObserver
	requests   atomic.Int64
}

var _ Service = (*FactorService)(nil)

// NewFactorService creates a FactorService.
//
// Parameters:
//   - f: The driver that performs the factorizations.
//   - maxBits: The largest accepted input size (0 for no limit).
//   - observers: Extra progress observers, such as a LoggingObserver.
func NewFactorService(f *orchestration.Factorizer, maxBits int, observers ...qsieve.ProgressObserver) *FactorService {
	driver := *f
	driver.Progress = qsieve.NewProgressSubject()
	metrics := qsieve.NewMetricsObserver()
	driver.Progress.Register(metrics)
	for _, o := range observers {
		driver.Progress.Register(o)
	}
	return &FactorService{factorizer: &driver, maxBits: maxBits, metrics: metrics}
}

// MaxBits returns the input size limit, 0 when unlimited.
func (s *FactorService) MaxBits() int { return s.maxBits }

// Factor validates the input size and factors n.
func (s *FactorService) Factor(ctx context.Context, n *big.Int) (orchestration.Result, error) {
	if n == nil || n.Sign() <= 0 {
		return orchestration.Result{N: n}, apperrors.NewValidationError("n", "must be a positive integer", n)
	}
	if s.maxBits > 0 && n.BitLen() > s.maxBits {
		return orchestration.Result{N: n}, ErrMaxBitsExceeded
	}
	index := int(s.requests.Add(1))
	defer s.metrics.Forget(index)
	res := s.factorizer.Factor(ctx, n, index)
	return res, res.Err
}
