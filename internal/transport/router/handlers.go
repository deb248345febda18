package router

import (
	"log/slog"
	"net/http"

	idMW "tillgate/internal/identity/middleware"
	idService "tillgate/internal/identity/service"
	"tillgate/internal/transport/httputil"
	dErrors "tillgate/pkg/domain-errors"
	"tillgate/pkg/validation"
)

type handlers struct {
	identity *idService.Service
	logger   *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type principalResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Source      string   `json:"source"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  principalResponse `json:"user"`
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if err := validation.CheckStringLength("email", req.Email, validation.MaxEmailLength); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	signed, principal, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token: signed,
		User: principalResponse{
			ID:          principal.SubjectID,
			Email:       principal.Email,
			DisplayName: principal.DisplayName,
			Role:        string(principal.Role),
			Permissions: principal.Grants,
			Source:      string(principal.Source),
		},
	})
}

func (h *handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := idMW.PrincipalFrom(r.Context())
	if !ok {
		// RequireAuth runs first; this is unreachable in the wired chain.
		httputil.WriteError(w, http.StatusUnauthorized,
			string(dErrors.CodeUnauthorized), "Authentication required.")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, principalResponse{
		ID:          principal.SubjectID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
		Role:        string(principal.Role),
		Permissions: principal.Grants,
		Source:      string(principal.Source),
	})
}
