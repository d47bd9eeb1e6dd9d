// Package metadata records the caller's address and user agent so audit
// events can say where an action came from.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientKey struct{}

type client struct {
	ip        string
	userAgent string
}

// ClientMetadata must run before any handler that emits audit events.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetClientIP(ctx context.Context) string {
	if c, ok := ctx.Value(clientKey{}).(client); ok {
		return c.ip
	}
	return ""
}

func GetUserAgent(ctx context.Context) string {
	if c, ok := ctx.Value(clientKey{}).(client); ok {
		return c.userAgent
	}
	return ""
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: clientIP, userAgent: userAgent})
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
