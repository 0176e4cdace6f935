package handlers

import (
	"net/http"

	apperr "github.com/dropDatabas3/communo/internal/http/errors"
	"github.com/dropDatabas3/communo/internal/http/helpers"
)

// HandleRefresh atiende POST /auth/refresh: rota la credencial de la
// cookie por una sesión nueva. Si la rotación falla, la cookie se borra
// igual: una credencial que no rota ya no sirve para nada.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := refreshFromCookie(r)
	if raw == "" {
		apperr.WriteError(w, apperr.ErrSessionExpired)
		return
	}

	session, err := h.Refresh.Rotate(r.Context(), raw)
	if err != nil {
		h.clearRefreshCookie(w)
		apperr.WriteError(w, mapServiceError(err))
		return
	}

	h.setRefreshCookie(w, session.RefreshToken)
	helpers.WriteJSON(w, http.StatusOK, newSessionResponse(session))
}

func refreshFromCookie(r *http.Request) string {
	ck, err := r.Cookie(helpers.RefreshCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}
