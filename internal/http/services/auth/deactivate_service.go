package auth

import (
	"context"

	"github.com/dropDatabas3/communo/internal/metrics"
	"github.com/dropDatabas3/communo/internal/observability/logger"
)

type deactivateService struct {
	deps Deps
}

// NewDeactivateService crea el servicio de baja de cuenta.
func NewDeactivateService(deps Deps) DeactivateService {
	return &deactivateService{deps: deps}
}

// Deactivate da de baja la cuenta y revoca todas sus credenciales de
// refresco. La baja es definitiva: ningún flujo vuelve a activar la
// cuenta ni reutiliza su identidad social.
func (s *deactivateService) Deactivate(ctx context.Context, userID int64) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.deactivate"),
		logger.UserID(userID),
	)

	if err := s.deps.Users.Deactivate(ctx, userID); err != nil {
		return err
	}

	n, err := s.deps.Tokens.RevokeAllByUser(ctx, userID)
	if err != nil {
		return err
	}
	metrics.SessionsRevoked.Add(float64(n))

	log.Info("account deactivated", logger.Count(int(n)))
	return nil
}
