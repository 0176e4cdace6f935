package handlers

import (
	"net/http"

	apperr "github.com/dropDatabas3/communo/internal/http/errors"
	"github.com/dropDatabas3/communo/internal/http/helpers"
	"github.com/dropDatabas3/communo/internal/http/middlewares"
)

type meResponse struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// HandleMe atiende GET /auth/me: la identidad del principal autenticado.
// Corre detrás de RequireAuth, el principal siempre está.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetPrincipal(r.Context())
	if p == nil {
		apperr.WriteError(w, apperr.ErrUnauthorized)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, meResponse{
		ID:    p.UserID,
		Email: p.Email,
		Roles: p.Roles,
	})
}

// HandleDeactivate atiende DELETE /auth/me: baja definitiva de la
// cuenta. Revoca todas las sesiones y borra la cookie.
func (h *Handlers) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetPrincipal(r.Context())
	if p == nil {
		apperr.WriteError(w, apperr.ErrUnauthorized)
		return
	}

	if err := h.Deactivate.Deactivate(r.Context(), p.UserID); err != nil {
		apperr.WriteError(w, mapServiceError(err))
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
