package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus del subsistema de autenticación. Paquete aparte
// para evitar ciclos de import entre servicios y HTTP.

var (
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Logins por proveedor y resultado (ok|deactivated|error)",
	}, []string{"provider", "result"})

	TokenVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_verifications_total",
		Help: "Verificaciones de access token por resultado (ok|expired|invalid)",
	}, []string{"result"})

	RefreshRotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_rotations_total",
		Help: "Rotaciones de refresh token por resultado (ok|revoked|expired|invalid)",
	}, []string{"result"})

	SessionsRevoked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_revoked_total",
		Help: "Credenciales de refresco revocadas (logout y bajas)",
	})
)

// Register registra las métricas de auth en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LoginsTotal,
		TokenVerifications,
		RefreshRotations,
		SessionsRevoked,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
