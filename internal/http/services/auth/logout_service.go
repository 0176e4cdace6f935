package auth

import (
	"context"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/metrics"
	"github.com/dropDatabas3/communo/internal/observability/logger"
)

type logoutService struct {
	deps Deps
}

// NewLogoutService crea el servicio de logout.
func NewLogoutService(deps Deps) LogoutService {
	return &logoutService{deps: deps}
}

// Logout revoca la credencial presentada. Es idempotente de punta a
// punta: token ausente, desconocido o ya revocado terminan igual que
// una revocación real. El cliente siempre sale deslogueado.
func (s *logoutService) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.logout"),
	)

	err := s.deps.Tokens.Revoke(ctx, rawRefresh)
	switch {
	case err == nil:
		metrics.SessionsRevoked.Inc()
	case repository.IsNotFound(err):
		log.Debug("logout for unknown credential")
	default:
		return err
	}
	return nil
}
