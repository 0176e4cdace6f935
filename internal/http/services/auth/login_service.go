package auth

import (
	"context"
	"strings"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/observability/logger"
	"github.com/dropDatabas3/communo/internal/security/password"
)

type loginService struct {
	deps Deps
}

// NewLoginService crea el servicio de login local.
func NewLoginService(deps Deps) LoginService {
	return &loginService{deps: deps}
}

// LoginPassword autentica email + password contra cuentas locales.
// Usuario inexistente y password incorrecto responden igual: el
// atacante no distingue cuál de los dos falló.
func (s *loginService) LoginPassword(ctx context.Context, email, plain string) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("LoginPassword"),
	)

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || plain == "" {
		return nil, ErrMissingFields
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Debug("user not found")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Active {
		log.Info("login rejected for deactivated account", logger.UserID(user.ID))
		return nil, ErrAccountDeactivated
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		// Cuenta social: no tiene password local.
		log.Debug("no password identity", logger.UserID(user.ID))
		return nil, ErrInvalidCredentials
	}

	if !password.Verify(plain, *user.PasswordHash) {
		log.Debug("password check failed", logger.UserID(user.ID))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
