// Package handlers expone los endpoints HTTP del subsistema de auth.
// Los handlers validan la entrada, delegan en los servicios y traducen
// los errores de dominio al catálogo de AppError.
package handlers

import (
	"errors"
	"time"

	"github.com/dropDatabas3/communo/internal/cache"
	apperr "github.com/dropDatabas3/communo/internal/http/errors"
	"github.com/dropDatabas3/communo/internal/http/services/auth"
	"github.com/dropDatabas3/communo/internal/oauth"
)

// CookieSettings son los atributos de la cookie de refresco.
type CookieSettings struct {
	Domain   string
	SameSite string
	Secure   bool
	TTL      time.Duration
}

// Handlers agrupa los servicios y la configuración que los endpoints
// necesitan. Se construye una vez en el bootstrap.
type Handlers struct {
	Reconcile  auth.ReconcileService
	Session    auth.SessionService
	Login      auth.LoginService
	Refresh    auth.RefreshService
	Logout     auth.LogoutService
	Deactivate auth.DeactivateService

	// Providers indexa los clientes OAuth por nombre canónico.
	Providers map[string]*oauth.Client

	// State guarda los states de un solo uso del flujo social.
	State    cache.Client
	StateTTL time.Duration

	// RedirectURL es el frontend al que vuelve el callback social.
	RedirectURL string

	Cookie CookieSettings
}

// sessionResponse es el cuerpo con el que se entrega un access token.
type sessionResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func newSessionResponse(s *auth.SessionTokens) sessionResponse {
	return sessionResponse{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(s.AccessExpiresAt).Seconds()),
	}
}

// mapServiceError traduce los errores centinela de los servicios al
// catálogo HTTP. Lo que no reconoce cae en 500.
func mapServiceError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return apperr.ErrMissingFields
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperr.ErrInvalidCredentials
	case errors.Is(err, auth.ErrAccountDeactivated):
		return apperr.ErrAccountDeactivated
	case errors.Is(err, auth.ErrRefreshInvalid):
		return apperr.ErrTokenInvalid
	case errors.Is(err, auth.ErrRefreshRevoked):
		return apperr.ErrRefreshRevoked
	case errors.Is(err, auth.ErrUserNotFound):
		return apperr.ErrUserNotFound
	default:
		return apperr.ErrInternalServerError.WithCause(err)
	}
}
