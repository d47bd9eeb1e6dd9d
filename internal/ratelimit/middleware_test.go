package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"worktrust/pkg/platform/middleware/metadata"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPerIP(t *testing.T) {
	mw := New(NewInMemoryStore(), discardLogger(), WithLimit(2, time.Minute))
	h := metadata.ClientMetadata(mw.PerIP("verify")(okHandler()))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/credentials/verify", nil)
		req.RemoteAddr = ip + ":4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := call("192.0.2.1")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, call("192.0.2.1").Code)

	blocked := call("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusNoContent, call("192.0.2.2").Code)
}

func TestPerIP_FailsOpen(t *testing.T) {
	h := New(failingStore{}, discardLogger()).PerIP("verify")(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credentials/verify", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
