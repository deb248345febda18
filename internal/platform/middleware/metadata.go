package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type clientIPKey struct{}
type clientAgentKey struct{}

// ClientAgent summarizes the caller's user agent for audit logging.
// Derived data only; never used for access control.
type ClientAgent struct {
	Browser string
	Bot     bool
	Mobile  bool
}

// ClientMetadata extracts the originating address and user agent into the
// context. Address resolution order: first X-Forwarded-For entry, X-Real-IP,
// then the transport-level remote address.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey{}, clientIP(r))
		ctx = context.WithValue(ctx, clientAgentKey{}, parseAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the resolved client address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// GetClientAgent retrieves the parsed user agent summary from the context.
func GetClientAgent(ctx context.Context) ClientAgent {
	if a, ok := ctx.Value(clientAgentKey{}).(ClientAgent); ok {
		return a
	}
	return ClientAgent{}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the originating client; the rest are proxies.
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseAgent(raw string) ClientAgent {
	if raw == "" {
		return ClientAgent{}
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	return ClientAgent{
		Browser: browser,
		Bot:     ua.Bot(),
		Mobile:  ua.Mobile(),
	}
}
