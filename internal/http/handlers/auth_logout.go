package handlers

import (
	"net/http"

	apperr "github.com/dropDatabas3/communo/internal/http/errors"
)

// HandleLogout atiende POST /auth/logout. Idempotente: con o sin
// cookie, conocida o no, la respuesta es 204 y la cookie queda borrada.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	raw := refreshFromCookie(r)

	if err := h.Logout.Logout(r.Context(), raw); err != nil {
		// Falla de infraestructura, no de estado: acá sí reportamos.
		apperr.WriteError(w, mapServiceError(err))
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
