package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	platformMW "tillgate/internal/platform/middleware"
	"tillgate/internal/platform/privacy"
	"tillgate/internal/ratelimit/models"
	"tillgate/internal/transport/httputil"
)

// Limiter is the admission check the middleware consumes.
type Limiter interface {
	Admit(ctx context.Context, address, path string) (*models.Result, error)
}

type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
}

func New(limiter Limiter, logger *slog.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		logger:  logger,
	}
}

// RateLimit gates every request through the admission service. Denials get
// 429 with Retry-After; limiter errors fail open so a broken limiter cannot
// take the service down with it.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := platformMW.GetClientIP(ctx)

		result, err := m.limiter.Admit(ctx, ip, r.URL.Path)
		if err != nil {
			m.logger.Error("failed to run admission check", "error", err, "ip_prefix", privacy.AnonymizeIP(ip))
			next.ServeHTTP(w, r)
			return
		}

		// Add headers regardless of outcome.
		addRateLimitHeaders(w, result)

		if !result.Allowed {
			writeRateLimitDenied(w, result)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// addRateLimitHeaders adds X-RateLimit-* headers to the response.
func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitDenied(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))

	message := "Too many requests from this address. Please try again later."
	if result.Reason == models.ReasonBlocked {
		message = "This address is temporarily blocked. Please try again later."
	}
	httputil.WriteJSON(w, http.StatusTooManyRequests, &httputil.ErrorResponse{
		Error:      string(result.Reason),
		Message:    message,
		RetryAfter: result.RetryAfter,
	})
}
