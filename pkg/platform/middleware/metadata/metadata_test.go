package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"forwarded chain takes first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:443", "203.0.113.7"},
		{"real ip header", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:443", "198.51.100.4"},
		{"ipv4 remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:5555", "2001:db8::1"},
		{"remote addr without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIP = GetClientIP(r.Context())
		gotUA = GetUserAgent(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:1234"
	req.Header.Set("User-Agent", "curl/8.5")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.9", gotIP)
	assert.Equal(t, "curl/8.5", gotUA)
}

func TestGetters_EmptyWithoutMiddleware(t *testing.T) {
	assert.Empty(t, GetClientIP(context.Background()))
	assert.Empty(t, GetUserAgent(context.Background()))
}
