package middlewares

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/http/errors"
	jwtx "github.com/dropDatabas3/communo/internal/jwt"
	"github.com/dropDatabas3/communo/internal/metrics"
	"github.com/dropDatabas3/communo/internal/observability/logger"
)

// ════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARES
// ════════════════════════════════════════════════════════════════════

// lookupTimeout acota el viaje al store dentro del gate: un store lento
// degrada a anónimo, no cuelga el request.
const lookupTimeout = 2 * time.Second

// verifyResult mapea el error de verificación a la etiqueta de métrica.
func verifyResult(err error) string {
	if stderrors.Is(err, jwtx.ErrExpired) {
		return "expired"
	}
	return "invalid"
}

// bearerToken extrae el valor de Authorization: Bearer <JWT>.
// Retorna cadena vacía si el header falta o no tiene el esquema Bearer.
func bearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[len("Bearer "):])
}

// OptionalAuth valida Authorization: Bearer <JWT> y, si el token es
// válido, consulta el store para confirmar que el usuario sigue activo.
// Cualquier falla (token ausente, firma inválida, expirado, usuario
// inexistente o dado de baja, store caído) degrada el request a anónimo:
// este middleware NUNCA corta la cadena.
//
// Las authorities del principal salen del token, no del store: un token
// viejo conserva los roles con los que fue emitido hasta expirar.
func OptionalAuth(issuer *jwtx.Issuer, users repository.UserRepository) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				metrics.TokenVerifications.WithLabelValues(verifyResult(err)).Inc()
				// Token inválido pero opcional: se deja constancia y se
				// continúa sin principal. Una firma que no verifica con
				// nuestra clave es material de auditoría, no de debug.
				if stderrors.Is(err, jwtx.ErrSignature) {
					logger.From(r.Context()).Warn("token signature mismatch, downgrading to anonymous",
						logger.Op("gate.verify"),
						logger.ClientIP(clientIP(r)),
						logger.Err(err),
					)
				} else {
					logger.From(r.Context()).Debug("token rejected, downgrading to anonymous",
						logger.Op("gate.verify"),
						logger.Err(err),
					)
				}
				next.ServeHTTP(w, r)
				return
			}
			metrics.TokenVerifications.WithLabelValues("ok").Inc()

			// Verificación viva: la firma prueba quién ERA el portador al
			// emitirse el token; el store decide si la cuenta sigue viva.
			lctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
			user, err := users.GetByID(lctx, claims.SubjectID)
			cancel()
			if err != nil {
				if !repository.IsNotFound(err) {
					logger.From(r.Context()).Warn("user lookup failed, downgrading to anonymous",
						logger.Op("gate.lookup"),
						logger.UserID(claims.SubjectID),
						logger.Err(err),
					)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !user.Active {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithPrincipal(r.Context(), &Principal{
				UserID: user.ID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth exige un token Bearer válido de un usuario activo.
// Responde 401 con WWW-Authenticate cuando falta o no valida.
func RequireAuth(issuer *jwtx.Issuer, users repository.UserRepository) Middleware {
	optional := OptionalAuth(issuer, users)
	return func(next http.Handler) http.Handler {
		guarded := RequireUser()(next)
		return optional(guarded)
	}
}

// RequireUser verifica que haya un principal en el contexto.
// Debe usarse después de OptionalAuth / RequireAuth.
func RequireUser() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetPrincipal(r.Context()) == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
