// Package auth contiene los servicios del subsistema de sesiones:
// reconciliación de cuentas sociales, emisión y rotación de
// credenciales, login local, logout y baja de cuenta.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/identity"
	jwtx "github.com/dropDatabas3/communo/internal/jwt"
)

// Errores de los servicios de auth
var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrAccountDeactivated = fmt.Errorf("account deactivated")
	ErrRefreshInvalid     = fmt.Errorf("refresh credential invalid")
	ErrRefreshRevoked     = fmt.Errorf("refresh credential revoked or unknown")
	ErrUserNotFound       = fmt.Errorf("user not found")
)

// SessionTokens es el par de credenciales emitidas para una sesión.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ReconcileService resuelve una identidad social a una cuenta local.
type ReconcileService interface {
	Reconcile(ctx context.Context, id identity.Canonical) (*repository.User, error)
}

// SessionService emite el par access+refresh para un usuario.
type SessionService interface {
	IssueSession(ctx context.Context, user *repository.User) (*SessionTokens, error)
}

// LoginService autentica credenciales locales (email + password).
type LoginService interface {
	LoginPassword(ctx context.Context, email, plain string) (*repository.User, error)
}

// RefreshService rota una credencial de refresco viva por una sesión nueva.
type RefreshService interface {
	Rotate(ctx context.Context, rawRefresh string) (*SessionTokens, error)
}

// LogoutService revoca la credencial de refresco presentada.
type LogoutService interface {
	Logout(ctx context.Context, rawRefresh string) error
}

// DeactivateService da de baja la cuenta y revoca todas sus sesiones.
type DeactivateService interface {
	Deactivate(ctx context.Context, userID int64) error
}

// Deps agrupa las dependencias compartidas por los servicios.
type Deps struct {
	Users  repository.UserRepository
	Tokens repository.TokenRepository
	Issuer *jwtx.Issuer

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SyntheticEmailDomain arma el email placeholder cuando el proveedor
	// no entrega uno (ej: kakao sin scope de email).
	SyntheticEmailDomain string
}
