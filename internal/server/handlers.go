package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/logging"
	"github.com/agbru/qsieve/internal/service"
	"github.com/agbru/qsieve/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
	})
}

// handleFactor factors the integer given in the 'n' query parameter.
//
// Malformed or oversized inputs get 400. A factorization that runs but
// fails (timeout, exhausted retunes) is reported with 200 and the error
// field set, like a successful one carries its factors.
//
// Parameters:
//   - w: The HTTP response writer.
//   - r: The HTTP request.
func (s *Server) handleFactor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	n, err := parseFactorParams(r, s.securityConfig.MaxDigits)
	if err != nil {
		var parseErr FactorParseError
		if errors.As(err, &parseErr) {
			s.writeErrorResponse(w, parseErr.StatusCode, parseErr.Message)
		} else {
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.RequestTimeout)
	defer cancel()

	res, err := s.service.Factor(ctx, n)
	var (
		precondition apperrors.PreconditionError
		validation   apperrors.ValidationError
	)
	switch {
	case errors.Is(err, service.ErrMaxBitsExceeded):
		s.writeErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("'n' has %d bits, above the maximum of %d", n.BitLen(), s.cfg.MaxBits))
		return
	case errors.As(err, &precondition):
		s.writeErrorResponse(w, http.StatusBadRequest, precondition.Error())
		return
	case errors.As(err, &validation):
		s.writeErrorResponse(w, http.StatusBadRequest, validation.Error())
		return
	case err != nil:
		s.logger.Warn("factorization failed", logging.Stringer("n", n), logging.Err(err))
	}

	body := res.Model()
	if body.N == "" {
		body.N = n.String()
		body.Bits = n.BitLen()
	}
	if err != nil && body.Error == "" {
		body.Error = err.Error()
	}
	s.writeJSONResponse(w, http.StatusOK, body)
}

// parseFactorParams reads a positive decimal integer from the 'n' parameter.
//
// Parameters:
//   - r: The HTTP request.
//   - maxDigits: The longest accepted parameter, 0 for no limit.
//
// Returns:
//   - *big.Int: The parsed input.
//   - error: A FactorParseError when the parameter is missing or invalid.
func parseFactorParams(r *http.Request, maxDigits int) (*big.Int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("n"))
	if raw == "" {
		return nil, FactorParseError{Message: "Missing 'n' parameter", StatusCode: http.StatusBadRequest}
	}
	if maxDigits > 0 && len(raw) > maxDigits {
		return nil, FactorParseError{
			Message:    fmt.Sprintf("'n' is longer than %d digits", maxDigits),
			StatusCode: http.StatusBadRequest,
		}
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() <= 0 {
		return nil, FactorParseError{
			Message:    "Invalid 'n' parameter: must be a positive decimal integer",
			StatusCode: http.StatusBadRequest,
		}
	}
	return n, nil
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding JSON response", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
