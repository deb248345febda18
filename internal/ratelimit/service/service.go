// Package service enforces per-address admission limits.
//
// This is the primary rate limiting service used by middleware to gate every
// inbound request. It classifies the request path into an endpoint class,
// runs the sliding window check for the originating address, and records
// audit events and metrics for denials.
//
// Usage:
//
//	svc, _ := service.New(store)
//	result, _ := svc.Admit(ctx, clientIP, r.URL.Path)
//	if !result.Allowed {
//	    // Return 429 Too Many Requests
//	}
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tillgate/internal/platform/audit"
	platformMW "tillgate/internal/platform/middleware"
	"tillgate/internal/platform/privacy"
	"tillgate/internal/ratelimit/config"
	"tillgate/internal/ratelimit/metrics"
	"tillgate/internal/ratelimit/models"
	"tillgate/internal/ratelimit/observability"
	"tillgate/internal/ratelimit/store/client"
	dErrors "tillgate/pkg/domain-errors"
)

var tracer = otel.Tracer("tillgate/ratelimit")

// Service runs admission checks against a client window store.
// Thread-safe for concurrent use by HTTP middleware.
type Service struct {
	store          client.Store
	logger         *slog.Logger
	config         *config.Config
	metrics        *metrics.Metrics
	auditPublisher audit.Publisher
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger for audit and debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig overrides the default admission configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithMetrics sets the metrics recorder for observability.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sets the audit event publisher for security logging.
func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// New creates an admission service backed by the given store.
func New(store client.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("client store is required")
	}

	svc := &Service{
		store:  store,
		config: config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Admit runs one admission check for the originating address against the
// limits of the path's endpoint class.
func (s *Service) Admit(ctx context.Context, address, path string) (*models.Result, error) {
	class := models.ClassifyPath(path)
	limit := s.config.GetLimit(class)

	ctx, span := tracer.Start(ctx, "ratelimit.Admit", trace.WithAttributes(
		attribute.String("endpoint_class", string(class)),
	))
	defer span.End()

	result, err := s.store.Admit(ctx, address, limit.Window, limit.MaxRequests, limit.BlockDuration)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "admission check failed")
	}

	span.SetAttributes(attribute.Bool("allowed", result.Allowed))

	if result.Allowed {
		if s.metrics != nil {
			s.metrics.RecordAdmission(string(class))
		}
		return result, nil
	}

	if s.metrics != nil {
		s.metrics.RecordDenial(string(class), string(result.Reason))
		if result.Reason == models.ReasonLimitExceeded {
			s.metrics.RecordBlockImposed()
		}
	}
	// Denials are where abusive traffic shows up; record what the caller
	// claims to be alongside the anonymized address.
	agent := platformMW.GetClientAgent(ctx)
	observability.LogAudit(ctx, s.logger, s.auditPublisher,
		"rate_limit_"+string(result.Reason),
		privacy.AnonymizeIP(address),
		string(result.Reason),
		"address", privacy.AnonymizeIP(address),
		"endpoint_class", class,
		"path", path,
		"limit", result.Limit,
		"retry_after", result.RetryAfter,
		"client_browser", agent.Browser,
		"client_bot", agent.Bot,
		"client_mobile", agent.Mobile,
	)
	return result, nil
}

// Class exposes path classification for callers that need the class itself
// (the request guard picks its body ceiling by class).
func (s *Service) Class(path string) models.EndpointClass {
	return models.ClassifyPath(path)
}

// BodyCeiling returns the body size ceiling for a path's class.
func (s *Service) BodyCeiling(path string) int64 {
	return s.config.GetBodyCeiling(models.ClassifyPath(path))
}
