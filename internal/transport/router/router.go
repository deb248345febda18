// Package router assembles the HTTP surface: the admission middleware chain
// in front, the gateway's own endpoints (login, me, health, metrics, rate
// limit administration), and a mount point for protected application
// handlers.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tillgate/internal/guard"
	idMW "tillgate/internal/identity/middleware"
	"tillgate/internal/identity/models"
	"tillgate/internal/identity/permissions"
	idService "tillgate/internal/identity/service"
	"tillgate/internal/platform/health"
	platformMW "tillgate/internal/platform/middleware"
	rlAdmin "tillgate/internal/ratelimit/admin"
	rlMW "tillgate/internal/ratelimit/middleware"
	rlService "tillgate/internal/ratelimit/service"
	"tillgate/pkg/platform/middleware/requesttime"
)

// Deps carries the constructed components the router wires together.
type Deps struct {
	Logger         *slog.Logger
	Limiter        *rlService.Service
	LimiterAdmin   *rlAdmin.Service
	Resolver       idMW.PrincipalResolver
	Identity       *idService.Service
	Health         *health.Handler
	Registry       *prometheus.Registry
	RequestTimeout time.Duration
}

// Router is the assembled HTTP handler plus the mount point for application
// routes that live behind admission and identity.
type Router struct {
	chi.Router
	guarded chi.Router
	logger  *slog.Logger
}

// New builds the middleware chain in admission order: cheap rejection first
// (rate limit, body size), then the deadline, then identity. Health and
// metrics sit outside the rate limiter so probes and scrapes never consume
// quota.
func New(deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(platformMW.Recovery(logger))
	r.Use(platformMW.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(platformMW.ClientMetadata)
	r.Use(platformMW.Logger(logger))
	r.Use(guard.SecurityHeaders)

	deps.Health.Register(r)
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	h := &handlers{identity: deps.Identity, logger: logger}

	guarded := r.Group(nil)
	guarded.Use(rlMW.New(deps.Limiter, logger).RateLimit)
	guarded.Use(guard.SizeLimit(deps.Limiter.BodyCeiling))
	if deps.RequestTimeout > 0 {
		guarded.Use(guard.Timeout(deps.RequestTimeout, logger))
	}
	guarded.Use(platformMW.ContentTypeJSON)
	guarded.Use(idMW.Authenticate(deps.Resolver, logger))

	guarded.Post("/auth/login", h.handleLogin)

	guarded.Group(func(pr chi.Router) {
		pr.Use(idMW.RequireAuth)
		pr.Get("/me", h.handleMe)
	})

	guarded.Route("/admin/ratelimit", func(ar chi.Router) {
		ar.Use(idMW.RequireRole(models.RoleSuperAdmin))
		ar.Mount("/", deps.LimiterAdmin.Routes())
	})

	return &Router{Router: r, guarded: guarded, logger: logger}
}

// MountProtected attaches an application handler behind the full admission
// chain, authentication, and one module:operation grant. The back-office
// CRUD surfaces register themselves through this; the admission layer stays
// agnostic of what they serve.
func (rt *Router) MountProtected(method, pattern string, module permissions.Module, op permissions.Operation, handler http.Handler) {
	rt.guarded.With(idMW.RequireAuth, idMW.RequirePermission(module, op)).Method(method, pattern, handler)
}
