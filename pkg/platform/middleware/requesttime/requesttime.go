// Package requesttime pins "now" for the lifetime of a request so that
// verification timestamps, expiries and audit rows written by one request agree.
package requesttime

import (
	"net/http"
	"time"

	"worktrust/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
