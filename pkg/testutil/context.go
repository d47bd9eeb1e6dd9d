package testutil

import (
	"net/http"

	id "worktrust/pkg/domain"
	"worktrust/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as RequireAuth would.
// An invalid ID leaves the request unauthenticated.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithRequestID sets the correlation ID RequestID middleware would assign.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
