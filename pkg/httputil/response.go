package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/logger"
	"github.com/utafrali/marketplace/pkg/validator"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the only error shape a caller ever sees: a stable code, a
// human message and the request id. Causes are logged, never serialized.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as an ErrorResponse. AppErrors keep their code and
// message; anything else becomes INTERNAL_ERROR. Server-side failures are logged
// with the wrapped cause using the request-scoped logger when one is mounted.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	code := apperrors.CodeInternal
	message := "an internal error occurred"
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	} else {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			code, message = apperrors.CodeProductNotFound, "resource not found"
		case errors.Is(err, apperrors.ErrInvalidInput):
			code, message = apperrors.CodeInvalidInput, "invalid input"
		}
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID},
	})
}

// WriteValidationError writes a 400 with field-level details for validator errors
// and a plain INVALID_INPUT for anything else (e.g. malformed JSON).
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      apperrors.CodeValidation,
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: apperrors.CodeInvalidInput, Message: err.Error(), RequestID: requestID},
	})
}

// ParseID parses a positive integer path parameter. On failure it writes a 400
// and returns false, signaling the caller to return early.
func ParseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "INVALID_PARAMETER",
				Message:   "invalid id: " + param,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return 0, false
	}
	return id, true
}
