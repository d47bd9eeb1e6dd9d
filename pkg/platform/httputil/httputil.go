// Package httputil holds the JSON response and request helpers shared by handlers.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "worktrust/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; credential documents are small.
const maxBodyBytes = 1 << 20

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeInvariantViolation: http.StatusConflict,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[dErrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as {"error", "error_description"}. Server-side
// failures omit the description so internals do not leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(err)
	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if dErrors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, status, body)
}

// Validatable is implemented by request bodies that validate and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes a JSON body into T and runs its validation. On
// failure it writes the error response and returns false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if err := PT(&req).Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
