package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformMW "tillgate/internal/platform/middleware"
	"tillgate/internal/ratelimit/models"
)

type fakeLimiter struct {
	result *models.Result
	err    error

	gotAddress string
	gotPath    string
}

func (f *fakeLimiter) Admit(_ context.Context, address, path string) (*models.Result, error) {
	f.gotAddress = address
	f.gotPath = path
	return f.result, f.err
}

func serve(t *testing.T, limiter Limiter, path string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := New(limiter, logger)

	handler := platformMW.ClientMetadata(mw.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Allowed(t *testing.T) {
	resetAt := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	limiter := &fakeLimiter{result: &models.Result{Allowed: true, Limit: 100, Remaining: 42, ResetAt: resetAt}}

	w := serve(t, limiter, "/api/v1/sales")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "42", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "203.0.113.50", limiter.gotAddress)
	assert.Equal(t, "/api/v1/sales", limiter.gotPath)
}

func TestRateLimit_Denied(t *testing.T) {
	limiter := &fakeLimiter{result: &models.Result{
		Allowed:    false,
		Limit:      5,
		Remaining:  0,
		ResetAt:    time.Now().Add(30 * time.Minute),
		RetryAfter: 1800,
		Reason:     models.ReasonLimitExceeded,
	}}

	w := serve(t, limiter, "/auth/login")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1800", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "limit_exceeded", body["error"])
	assert.Equal(t, float64(1800), body["retry_after"])
}

func TestRateLimit_BlockedMessage(t *testing.T) {
	limiter := &fakeLimiter{result: &models.Result{
		Allowed:    false,
		RetryAfter: 120,
		Reason:     models.ReasonBlocked,
	}}

	w := serve(t, limiter, "/auth/login")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "blocked", body["error"])
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("store unavailable")}

	w := serve(t, limiter, "/api/v1/sales")

	assert.Equal(t, http.StatusOK, w.Code, "limiter failure must not reject traffic")
}
