package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	tests := []struct {
		name     string
		expected string
		sent     string
		want     int
	}{
		{"matching token", "s3cret", "s3cret", http.StatusTeapot},
		{"wrong token", "s3cret", "nope", http.StatusUnauthorized},
		{"missing token", "s3cret", "", http.StatusUnauthorized},
		{"unconfigured token", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/sweep", nil)
			if tt.sent != "" {
				req.Header.Set(HeaderAdminToken, tt.sent)
			}
			rec := httptest.NewRecorder()
			RequireAdminToken(tt.expected, logger)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
