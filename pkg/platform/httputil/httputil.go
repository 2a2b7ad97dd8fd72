// Package httputil centralizes JSON response writing and domain error
// translation so every handler returns the same envelope.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "idproof/pkg/domain-errors"
)

// statusByCode maps domain error codes onto HTTP statuses. Unknown codes
// fall back to 500.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:            http.StatusBadRequest,
	dErrors.CodeBadRequest:              http.StatusBadRequest,
	dErrors.CodeValidation:              http.StatusUnprocessableEntity,
	dErrors.CodeUnauthorized:            http.StatusUnauthorized,
	dErrors.CodeForbidden:               http.StatusForbidden,
	dErrors.CodeNotFound:                http.StatusNotFound,
	dErrors.CodeConflict:                http.StatusConflict,
	dErrors.CodeTimeout:                 http.StatusGatewayTimeout,
	dErrors.CodeInvalidTransition:       http.StatusConflict,
	dErrors.CodeConcurrentModification:  http.StatusConflict,
	dErrors.CodeExtractionFailed:        http.StatusBadGateway,
	dErrors.CodeVerificationFailed:      http.StatusBadGateway,
	dErrors.CodeMalformedResponse:       http.StatusBadGateway,
	dErrors.CodeSignatureFailure:        http.StatusInternalServerError,
	dErrors.CodeInvariantViolation:      http.StatusInternalServerError,
	dErrors.CodeInternal:                http.StatusInternalServerError,
}

// WriteJSON encodes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors deliberately omit the description so infrastructure
// details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, status, body)
}

// DecodeAndPrepare decodes a JSON request body into T. On failure it writes
// the error response and logs, so handlers can simply bail out on !ok.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		var zero T
		return zero, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			if logger != nil {
				logger.WarnContext(ctx, "request validation failed",
					"request_id", requestID,
					"error", err,
				)
			}
			WriteError(w, err)
			var zero T
			return zero, false
		}
	}
	return req, true
}

// Validatable lets request types hook validation into DecodeAndPrepare.
type Validatable interface {
	Validate() error
}
