package handlers

import (
	"net/http"

	apperr "github.com/dropDatabas3/communo/internal/http/errors"
	"github.com/dropDatabas3/communo/internal/http/helpers"
	"github.com/dropDatabas3/communo/internal/metrics"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin atiende POST /auth/login: credenciales locales.
// Entrega el access token en el body y la credencial de refresco como
// cookie HttpOnly.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	user, err := h.Login.LoginPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("local", loginResult(err)).Inc()
		apperr.WriteError(w, mapServiceError(err))
		return
	}

	session, err := h.Session.IssueSession(r.Context(), user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("local", "error").Inc()
		apperr.WriteError(w, mapServiceError(err))
		return
	}
	metrics.LoginsTotal.WithLabelValues("local", "ok").Inc()

	h.setRefreshCookie(w, session.RefreshToken)
	helpers.WriteJSON(w, http.StatusOK, newSessionResponse(session))
}

func loginResult(err error) string {
	if mapServiceError(err) == apperr.ErrAccountDeactivated {
		return "deactivated"
	}
	return "error"
}

func (h *Handlers) setRefreshCookie(w http.ResponseWriter, refresh string) {
	http.SetCookie(w, helpers.BuildCookie(
		helpers.RefreshCookieName, refresh,
		h.Cookie.Domain, h.Cookie.SameSite, h.Cookie.Secure, h.Cookie.TTL,
	))
}

func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, helpers.BuildDeletionCookie(
		helpers.RefreshCookieName,
		h.Cookie.Domain, h.Cookie.SameSite, h.Cookie.Secure,
	))
}
