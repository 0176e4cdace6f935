package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/observability/logger"
)

type sessionService struct {
	deps Deps
}

// NewSessionService crea el servicio de emisión de sesiones.
func NewSessionService(deps Deps) SessionService {
	return &sessionService{deps: deps}
}

// IssueSession firma el par access+refresh y persiste la credencial de
// refresco. El store revoca cualquier credencial viva del usuario en la
// misma transacción: una sesión nueva implica una sola fila activa.
func (s *sessionService) IssueSession(ctx context.Context, user *repository.User) (*SessionTokens, error) {
	return issueSession(ctx, s.deps, user, nil)
}

// issueSession es la emisión compartida entre login y rotación.
// rotatedFrom enlaza la credencial nueva con la que reemplaza.
func issueSession(ctx context.Context, deps Deps, user *repository.User, rotatedFrom *uuid.UUID) (*SessionTokens, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.session"),
		logger.UserID(user.ID),
	)

	roles, err := deps.Users.Authorities(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []string{user.Role}
	}

	access, accessExp, err := deps.Issuer.IssueAccess(user.ID, roles, user.Email, deps.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := deps.Issuer.IssueRefresh(user.ID, deps.RefreshTTL)
	if err != nil {
		return nil, err
	}

	if _, err := deps.Tokens.Issue(ctx, repository.IssueTokenInput{
		UserID:      user.ID,
		Token:       refresh,
		ExpiresAt:   refreshExp,
		RotatedFrom: rotatedFrom,
	}); err != nil {
		return nil, err
	}

	log.Debug("session issued")
	return &SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
