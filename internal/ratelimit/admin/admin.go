// Package admin exposes operational remediation for the admission layer:
// unblocking an address, clearing all state, and listing current blocks.
// These exist for operators, not for request-path logic.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tillgate/internal/ratelimit/models"
	"tillgate/internal/ratelimit/store/client"
	"tillgate/internal/transport/httputil"
	dErrors "tillgate/pkg/domain-errors"
)

// Service wraps the client store with operator-facing operations.
type Service struct {
	store  client.Store
	logger *slog.Logger
}

func New(store client.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Reset unconditionally removes an address's admission state.
func (s *Service) Reset(ctx context.Context, address string) error {
	if address == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if err := s.store.Reset(ctx, address); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reset address")
	}
	s.logger.InfoContext(ctx, "rate_limit_reset", "address", address, "log_type", "audit")
	return nil
}

// ResetAll clears all admission state.
func (s *Service) ResetAll(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reset all")
	}
	s.logger.InfoContext(ctx, "rate_limit_reset_all", "log_type", "audit")
	return nil
}

// ListBlocked enumerates currently blocked addresses with remaining cooldown.
func (s *Service) ListBlocked(ctx context.Context) ([]models.BlockedClient, error) {
	blocked, err := s.store.ListBlocked(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list blocked")
	}
	return blocked, nil
}

// Routes mounts the admin endpoints. Callers gate this router behind the
// superadmin role.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/blocked", s.handleListBlocked)
	r.Delete("/clients/{address}", s.handleReset)
	r.Delete("/clients", s.handleResetAll)
	return r
}

func (s *Service) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	blocked, err := s.ListBlocked(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, string(dErrors.CodeInternal), "failed to list blocked clients")
		return
	}
	if blocked == nil {
		blocked = []models.BlockedClient{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"blocked": blocked})
}

func (s *Service) handleReset(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if err := s.Reset(r.Context(), address); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			httputil.WriteError(w, http.StatusBadRequest, string(dErrors.CodeInvalidInput), "address is required")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, string(dErrors.CodeInternal), "failed to reset client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.ResetAll(r.Context()); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, string(dErrors.CodeInternal), "failed to reset clients")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
