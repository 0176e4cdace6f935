package auth

import (
	"context"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/metrics"
	"github.com/dropDatabas3/communo/internal/observability/logger"
)

type refreshService struct {
	deps Deps
}

// NewRefreshService crea el servicio de rotación de refresh tokens.
func NewRefreshService(deps Deps) RefreshService {
	return &refreshService{deps: deps}
}

// Rotate valida la credencial presentada y emite una sesión nueva.
// La validación tiene dos capas independientes:
//
//  1. Criptográfica: firma y expiración del JWT.
//  2. De estado: la fila en el store debe existir y seguir activa.
//     Una firma perfecta sobre una fila revocada no vale nada.
//
// La emisión nueva revoca la presentada en la misma transacción y la
// enlaza via rotated_from.
func (s *refreshService) Rotate(ctx context.Context, rawRefresh string) (*SessionTokens, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.refresh"),
		logger.Op("Rotate"),
	)

	if rawRefresh == "" {
		metrics.RefreshRotations.WithLabelValues("invalid").Inc()
		return nil, ErrRefreshInvalid
	}

	claims, err := s.deps.Issuer.Verify(rawRefresh)
	if err != nil {
		log.Debug("refresh verification failed", logger.Err(err))
		metrics.RefreshRotations.WithLabelValues("invalid").Inc()
		return nil, ErrRefreshInvalid
	}

	row, err := s.deps.Tokens.GetByToken(ctx, rawRefresh)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.RefreshRotations.WithLabelValues("revoked").Inc()
			return nil, ErrRefreshRevoked
		}
		return nil, err
	}
	if !row.Active() {
		log.Info("rotation rejected for revoked credential", logger.UserID(row.UserID))
		metrics.RefreshRotations.WithLabelValues("revoked").Inc()
		return nil, ErrRefreshRevoked
	}

	user, err := s.deps.Users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.RefreshRotations.WithLabelValues("invalid").Inc()
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.Active {
		metrics.RefreshRotations.WithLabelValues("invalid").Inc()
		return nil, ErrAccountDeactivated
	}

	rotatedFrom := row.ID
	session, err := issueSession(ctx, s.deps, user, &rotatedFrom)
	if err != nil {
		return nil, err
	}
	metrics.RefreshRotations.WithLabelValues("ok").Inc()
	return session, nil
}
