package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/identity"
	"github.com/dropDatabas3/communo/internal/observability/logger"
)

type reconcileService struct {
	deps Deps
}

// NewReconcileService crea el servicio de reconciliación de cuentas.
func NewReconcileService(deps Deps) ReconcileService {
	return &reconcileService{deps: deps}
}

// Reconcile busca la cuenta por el par (provider, providerId) y la crea
// en el primer login. Reglas:
//
//   - Cuenta dada de baja: rechaza, nunca resucita ni re-registra.
//   - Re-login: refresca SOLO nombre y avatar. El email y el providerId
//     quedan como se capturaron en el registro.
//   - Carrera de primer login: el perdedor del INSERT recibe conflicto
//     y reintenta como lookup; ambos requests terminan en la misma cuenta.
func (s *reconcileService) Reconcile(ctx context.Context, id identity.Canonical) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.reconcile"),
		logger.Provider(id.Provider),
		logger.ProviderID(id.ProviderID),
	)

	user, err := s.deps.Users.GetByProvider(ctx, id.Provider, id.ProviderID)
	switch {
	case err == nil:
		return s.relogin(ctx, log, user, id)
	case repository.IsNotFound(err):
		// primer login: registrar
	default:
		return nil, err
	}

	email := id.Email
	if email == "" {
		email = identity.SyntheticEmail(id.Provider, id.ProviderID, s.deps.SyntheticEmailDomain)
	}

	created, err := s.deps.Users.Create(ctx, repository.CreateUserInput{
		Email:      email,
		Name:       id.Name,
		AvatarURL:  id.AvatarURL,
		Role:       repository.RoleUser,
		Provider:   id.Provider,
		ProviderID: id.ProviderID,
	})
	if err != nil {
		if repository.IsConflict(err) {
			// Perdimos la carrera: el otro request ya creó la cuenta.
			log.Debug("create raced, retrying as lookup")
			raced, lerr := s.deps.Users.GetByProvider(ctx, id.Provider, id.ProviderID)
			if lerr != nil {
				return nil, lerr
			}
			return s.relogin(ctx, log, raced, id)
		}
		return nil, err
	}

	if err := s.deps.Users.AddAuthority(ctx, created.ID, repository.RoleUser); err != nil {
		return nil, err
	}

	log.Info("account registered", logger.UserID(created.ID))
	return created, nil
}

// relogin aplica las reglas de re-login sobre una cuenta existente.
func (s *reconcileService) relogin(ctx context.Context, log *zap.Logger, user *repository.User, id identity.Canonical) (*repository.User, error) {
	if !user.Active {
		log.Info("login rejected for deactivated account", logger.UserID(user.ID))
		return nil, ErrAccountDeactivated
	}

	if user.Name != id.Name || user.AvatarURL != id.AvatarURL {
		if err := s.deps.Users.UpdateProfile(ctx, user.ID, id.Name, id.AvatarURL); err != nil {
			return nil, err
		}
		user.Name = id.Name
		user.AvatarURL = id.AvatarURL
	}
	return user, nil
}
