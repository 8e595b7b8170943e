package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"recipeforge/internal/logging"
	"recipeforge/internal/services"
	"recipeforge/internal/validation"
)

// Error codes carried in the envelope.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

const maxBodyBytes = 1 << 20

// Envelope is the body of every response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *EnvelopeError `json:"error,omitempty"`
}

// EnvelopeError describes a failed request.
type EnvelopeError struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Envelope{Error: &EnvelopeError{Code: code, Message: message}})
}

// classify maps an error to its status and envelope code. Invalid state
// transitions are reported as conflicts.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	body := &EnvelopeError{Code: code, Message: services.Message(err)}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	logger := logging.WithContext(r.Context(), s.logger)
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
		logging.ErrorWithContext(logger, "request failed", "api_internal_error",
			logging.String("route", routePattern(r)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the daemon log for the underlying failure"),
		)
	} else {
		logger.Debug("request rejected",
			logging.String("route", routePattern(r)),
			logging.String("code", code),
			logging.Error(err),
		)
	}
	writeJSON(w, status, Envelope{Error: body})
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return services.Validation("api", fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
