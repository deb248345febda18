// Package middleware attaches resolved principals to requests and gates
// handlers on authentication, fine-grained grants, or coarse role rank.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"tillgate/internal/identity/models"
	"tillgate/internal/identity/permissions"
	platform "tillgate/internal/platform/middleware"
	"tillgate/internal/transport/httputil"
	dErrors "tillgate/pkg/domain-errors"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the resolved principal, if any.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*models.Principal)
	return p, ok && p != nil
}

// PrincipalResolver is the identity resolution chain.
type PrincipalResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*models.Principal, error)
}

// Authenticate resolves the request's principal and attaches it to the
// context. Resolution failure is not a rejection here; enforcement belongs
// to RequireAuth and friends so public endpoints stay reachable.
func Authenticate(resolver PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, err := resolver.Resolve(ctx, r)
			if err == nil {
				logger.Debug("principal_resolved",
					"subject_id", principal.SubjectID,
					"source", string(principal.Source),
					"request_id", platform.GetRequestID(ctx),
				)
				ctx = WithPrincipal(ctx, principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a resolved principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeUnauthenticated(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a handler on one module:operation grant. A missing
// principal is 401; a principal without the grant is 403, so callers can
// tell "log in" apart from "not allowed".
func RequirePermission(module permissions.Module, op permissions.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				writeUnauthenticated(w)
				return
			}
			if !permissions.IsAuthorized(principal.Grants, module, op) {
				httputil.WriteError(w, http.StatusForbidden,
					string(dErrors.CodeForbidden), "Missing permission "+permissions.Grant(module, op)+".")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a handler on coarse role rank, independent of grants.
func RequireRole(min models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				writeUnauthenticated(w)
				return
			}
			if !principal.Role.AtLeast(min) {
				httputil.WriteError(w, http.StatusForbidden,
					string(dErrors.CodeForbidden), "Insufficient role.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthenticated(w http.ResponseWriter) {
	httputil.WriteError(w, http.StatusUnauthorized,
		string(dErrors.CodeUnauthorized), "Authentication required.")
}
