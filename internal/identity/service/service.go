// Package service implements password login and token issuance on top of
// the account store.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"tillgate/internal/identity/metrics"
	"tillgate/internal/identity/models"
	"tillgate/internal/identity/store/account"
	"tillgate/internal/identity/token"
	"tillgate/internal/platform/audit"
	"tillgate/internal/sentinel"
	dErrors "tillgate/pkg/domain-errors"
)

var tracer = otel.Tracer("tillgate/identity")

type Service struct {
	store   account.Store
	tokens  *token.JWTService
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher
}

type Options func(*Service)

func WithLogger(logger *slog.Logger) Options {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Options {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p audit.Publisher) Options {
	return func(s *Service) {
		s.audit = p
	}
}

func New(store account.Store, tokens *token.JWTService, opts ...Options) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies an email/password pair and issues a signed token carrying
// the account's current role and grants. Unknown email and wrong password
// are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Principal, error) {
	ctx, span := tracer.Start(ctx, "identity.Login", trace.WithAttributes(
		attribute.String("email", email),
	))
	defer span.End()

	if email == "" || password == "" {
		return "", nil, dErrors.New(dErrors.CodeInvalidInput, "email and password are required")
	}

	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.ObserveLogin("rejected")
			s.logAudit(ctx, "login_rejected", email, "unknown_account", "denied")
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		s.metrics.ObserveLogin("error")
		return "", nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "account lookup failed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		s.metrics.ObserveLogin("rejected")
		s.logAudit(ctx, "login_rejected", acc.ID, "bad_password", "denied")
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	signed, err := s.tokens.GenerateToken(ctx, acc)
	if err != nil {
		s.metrics.ObserveLogin("error")
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "token issuance failed")
	}

	s.metrics.ObserveLogin("accepted")
	s.logAudit(ctx, "login_accepted", acc.ID, "", "allowed", "role", string(acc.Role))
	return signed, acc.Principal(models.SourceToken), nil
}
