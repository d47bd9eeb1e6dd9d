package request

import (
	"net/http"

	"github.com/google/uuid"

	"worktrust/pkg/requestcontext"
)

// HeaderRequestID carries the correlation ID in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID reuses an inbound X-Request-ID or mints one, stores it in the
// context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(HeaderRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, rid)
		ctx := requestcontext.WithRequestID(r.Context(), rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
