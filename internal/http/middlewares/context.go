package middlewares

import "context"

// ════════════════════════════════════════════════════════════════════
// CONTEXT KEYS
// ════════════════════════════════════════════════════════════════════

type ctxKey string

const (
	// ctxPrincipalKey guarda el Principal autenticado
	ctxPrincipalKey ctxKey = "principal"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// Principal es la identidad autenticada de un request. Solo existe en el
// contexto cuando el portador presentó un token válido Y el usuario
// sigue activo en el store.
type Principal struct {
	UserID int64
	Email  string
	Roles  []string
}

// HasRole reporta si el principal porta la authority dada.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════════════
// SETTERS (internos, usados por middlewares)
// ════════════════════════════════════════════════════════════════════

// WithPrincipal inyecta el principal en el contexto
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// ════════════════════════════════════════════════════════════════════
// GETTERS (públicos, usados por handlers/services)
// ════════════════════════════════════════════════════════════════════

// GetPrincipal obtiene el principal del contexto.
// Retorna nil para requests anónimos.
func GetPrincipal(ctx context.Context) *Principal {
	if v := ctx.Value(ctxPrincipalKey); v != nil {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
