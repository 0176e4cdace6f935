package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/communo/internal/cache"
	apperr "github.com/dropDatabas3/communo/internal/http/errors"
	"github.com/dropDatabas3/communo/internal/http/services/auth"
	"github.com/dropDatabas3/communo/internal/identity"
	"github.com/dropDatabas3/communo/internal/metrics"
	"github.com/dropDatabas3/communo/internal/observability/logger"
	tokens "github.com/dropDatabas3/communo/internal/security/token"
)

const statePrefix = "state:"

// HandleSocialStart atiende GET /oauth2/authorize/{provider}: genera un
// state de un solo uso, lo guarda en cache y redirige al proveedor.
func (h *Handlers) HandleSocialStart(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	client, ok := h.Providers[provider]
	if !ok {
		apperr.WriteError(w, apperr.ErrUnsupportedProvider.WithDetail(provider))
		return
	}

	state, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		apperr.WriteError(w, apperr.ErrInternalServerError.WithCause(err))
		return
	}
	if err := h.State.Set(r.Context(), statePrefix+state, provider, h.StateTTL); err != nil {
		apperr.WriteError(w, apperr.ErrServiceUnavailable.WithCause(err))
		return
	}

	http.Redirect(w, r, client.AuthURL(state), http.StatusFound)
}

// HandleSocialCallback atiende GET /oauth2/callback/{provider}: valida
// el state, intercambia el code, normaliza la identidad y emite la
// sesión. En éxito redirige al frontend con el access token; la
// credencial de refresco viaja solo como cookie.
func (h *Handlers) HandleSocialCallback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	log := logger.From(r.Context()).With(
		logger.Component("handlers.social"),
		logger.Provider(provider),
	)

	client, ok := h.Providers[provider]
	if !ok {
		apperr.WriteError(w, apperr.ErrUnsupportedProvider.WithDetail(provider))
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		log.Info("provider returned error", logger.String("provider_error", e))
		h.redirectWithError(w, r, "provider_error")
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		apperr.WriteError(w, apperr.ErrBadRequest.WithDetail("missing code or state"))
		return
	}

	// El state es de un solo uso: se consume acá, exista o no el code.
	stored, err := h.State.Get(r.Context(), statePrefix+state)
	if err != nil || stored != provider {
		if err != nil && !cache.IsNotFound(err) {
			log.Warn("state cache unavailable", logger.Err(err))
		}
		apperr.WriteError(w, apperr.ErrInvalidState)
		return
	}
	_ = h.State.Delete(r.Context(), statePrefix+state)

	accessToken, err := client.ExchangeCode(r.Context(), code)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		metrics.LoginsTotal.WithLabelValues(provider, "error").Inc()
		apperr.WriteError(w, apperr.ErrUpstreamProvider.WithCause(err))
		return
	}
	raw, err := client.FetchUserInfo(r.Context(), accessToken)
	if err != nil {
		log.Warn("userinfo fetch failed", logger.Err(err))
		metrics.LoginsTotal.WithLabelValues(provider, "error").Inc()
		apperr.WriteError(w, apperr.ErrUpstreamProvider.WithCause(err))
		return
	}

	canonical, err := identity.Normalize(provider, raw)
	if err != nil {
		apperr.WriteError(w, apperr.ErrUnsupportedProvider.WithCause(err))
		return
	}

	user, err := h.Reconcile.Reconcile(r.Context(), canonical)
	if err != nil {
		if errors.Is(err, auth.ErrAccountDeactivated) {
			metrics.LoginsTotal.WithLabelValues(provider, "deactivated").Inc()
			h.redirectWithError(w, r, "account_deactivated")
			return
		}
		metrics.LoginsTotal.WithLabelValues(provider, "error").Inc()
		apperr.WriteError(w, mapServiceError(err))
		return
	}

	session, err := h.Session.IssueSession(r.Context(), user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(provider, "error").Inc()
		apperr.WriteError(w, mapServiceError(err))
		return
	}
	metrics.LoginsTotal.WithLabelValues(provider, "ok").Inc()

	h.setRefreshCookie(w, session.RefreshToken)
	http.Redirect(w, r, h.RedirectURL+"?token="+url.QueryEscape(session.AccessToken), http.StatusFound)
}

// redirectWithError devuelve al frontend con un código de error legible
// en la query, para fallas que el usuario puede entender.
func (h *Handlers) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.RedirectURL+"?error="+url.QueryEscape(code), http.StatusFound)
}
