// Package resolver answers "who is making this request" by trying an ordered
// chain of credential strategies: signed bearer token, opaque role
// credential, then sanitized session cookie. The first strategy to produce a
// principal wins; a strategy error moves on to the next rather than failing
// the request.
package resolver

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"tillgate/internal/identity/metrics"
	"tillgate/internal/identity/models"
	"tillgate/internal/identity/sanitize"
	"tillgate/internal/identity/store/account"
	"tillgate/internal/identity/token"
	dErrors "tillgate/pkg/domain-errors"
	"tillgate/pkg/validation"
)

// SessionCookieName is the cookie checked by the session strategy.
const SessionCookieName = "session"

// TokenValidator verifies a signed bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*token.Claims, error)
}

// Strategy attempts to produce a principal from one credential channel.
// Returning (nil, nil) means the channel was absent or unusable; the chain
// moves on.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, r *http.Request) (*models.Principal, error)
}

type Resolver struct {
	strategies []Strategy
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Options func(*Resolver)

func WithLogger(logger *slog.Logger) Options {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Options {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New wires the default strategy chain over the given store and validator.
func New(store account.Store, tokens TokenValidator, opts ...Options) *Resolver {
	r := &Resolver{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.strategies = []Strategy{
		&tokenStrategy{store: store, tokens: tokens, logger: r.logger, metrics: r.metrics},
		&credentialStrategy{store: store},
		&sessionStrategy{store: store, logger: r.logger, metrics: r.metrics},
	}
	return r
}

// Resolve walks the chain. It performs at most one account-store read per
// winning strategy and never retries; absence of any usable credential is an
// unauthorized domain error, not a crash.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*models.Principal, error) {
	for _, strategy := range r.strategies {
		principal, err := strategy.Resolve(ctx, req)
		if err != nil {
			r.logger.Debug("identity_strategy_failed", "strategy", strategy.Name(), "error", err)
			continue
		}
		if principal != nil {
			r.metrics.ObserveResolution(string(principal.Source))
			return principal, nil
		}
	}
	r.metrics.ObserveUnauthenticated()
	return nil, dErrors.New(dErrors.CodeUnauthorized, "no usable credential")
}

// bearerValue extracts and bounds the Authorization bearer value, or "".
func bearerValue(r *http.Request) string {
	header := r.Header.Get("Authorization")
	value, found := strings.CutPrefix(header, "Bearer ")
	if !found || value == "" || len(value) > validation.MaxTokenLength {
		return ""
	}
	return value
}

// tokenStrategy verifies a signed token, then rebuilds the principal from
// the account's current record so grant revocation takes effect immediately.
// If the fresh lookup fails, it degrades to the token's embedded claims
// rather than failing the request; the staleness window is deliberate and
// tagged with a distinct source.
type tokenStrategy struct {
	store   account.Store
	tokens  TokenValidator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (s *tokenStrategy) Name() string { return "signed_token" }

func (s *tokenStrategy) Resolve(ctx context.Context, r *http.Request) (*models.Principal, error) {
	bearer := bearerValue(r)
	if bearer == "" {
		return nil, nil
	}

	claims, err := s.tokens.ValidateToken(bearer)
	if err != nil {
		// Not a signed token; the credential strategy gets the same bearer.
		return nil, nil
	}

	acc, err := s.store.FindByID(ctx, claims.UserID)
	if err == nil {
		return acc.Principal(models.SourceToken), nil
	}

	s.logger.Warn("identity_fresh_lookup_failed",
		"strategy", s.Name(),
		"subject_id", claims.UserID,
		"error", err,
	)
	s.metrics.ObserveFallback()

	principal := &models.Principal{
		SubjectID: claims.UserID,
		Email:     claims.Email,
		Grants:    claims.Permissions,
		Source:    models.SourceTokenClaims,
	}
	if role, ok := models.ParseRole(claims.Role); ok {
		principal.Role = role
	}
	return principal, nil
}

// credentialStrategy matches the bearer value against stored opaque role
// credentials, the channel used by long-lived automated agent clients.
type credentialStrategy struct {
	store account.Store
}

func (s *credentialStrategy) Name() string { return "role_credential" }

func (s *credentialStrategy) Resolve(ctx context.Context, r *http.Request) (*models.Principal, error) {
	bearer := bearerValue(r)
	if bearer == "" {
		return nil, nil
	}

	acc, err := s.store.FindByRoleCredential(ctx, bearer)
	if err != nil {
		return nil, nil
	}
	return acc.Principal(models.SourceRoleCredential), nil
}

// sessionStrategy bounded-parses and allow-list-sanitizes a session cookie,
// then applies the same fetch-fresh-or-fall-back pattern keyed by the
// session's subject identifier.
type sessionStrategy struct {
	store   account.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (s *sessionStrategy) Name() string { return "session_cookie" }

func (s *sessionStrategy) Resolve(ctx context.Context, r *http.Request) (*models.Principal, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	value := cookie.Value
	if decoded, decodeErr := url.QueryUnescape(value); decodeErr == nil {
		value = decoded
	}

	raw, ok := sanitize.ParseBounded(value, validation.MaxSessionCookieBytes)
	if !ok {
		return nil, nil
	}
	payload, ok := sanitize.SanitizeSession(raw)
	if !ok || payload.UserID == "" {
		// A session with no subject identifier cannot anchor a principal.
		return nil, nil
	}

	acc, err := s.store.FindByID(ctx, payload.UserID)
	if err == nil {
		return acc.Principal(models.SourceSession), nil
	}

	s.logger.Warn("identity_fresh_lookup_failed",
		"strategy", s.Name(),
		"subject_id", payload.UserID,
		"error", err,
	)
	s.metrics.ObserveFallback()

	return &models.Principal{
		SubjectID: payload.UserID,
		Email:     payload.Email,
		Role:      payload.Role,
		Grants:    payload.Permissions,
		Source:    models.SourceSessionStale,
	}, nil
}
