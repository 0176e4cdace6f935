package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshToken representa un refresh credential persistido. Las filas nunca
// se borran: revocadas o vencidas quedan como rastro de auditoría.
type RefreshToken struct {
	ID uuid.UUID
	// Token es el valor firmado literal. Es la key de lookup del store y
	// es UNIQUE para siempre: un token forjado con firma válida pero sin
	// fila no pasa la validación del refresh flow.
	Token       string
	UserID      int64
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	RotatedFrom *uuid.UUID
}

// Active reporta si la credencial está viva: ni revocada ni vencida.
// La expiración se evalúa lazy, acá, no con sweepers de fondo.
func (t *RefreshToken) Active() bool {
	return t.RevokedAt == nil && time.Now().Before(t.ExpiresAt)
}

// IssueTokenInput contiene los datos para emitir un refresh credential.
type IssueTokenInput struct {
	UserID      int64
	Token       string
	ExpiresAt   time.Time
	RotatedFrom *uuid.UUID
}

// TokenRepository define operaciones sobre refresh credentials.
type TokenRepository interface {
	// Issue revoca cualquier credencial activa previa del usuario e
	// inserta la nueva, en UNA unidad atómica: un lector concurrente
	// jamás observa dos filas activas para el mismo usuario.
	Issue(ctx context.Context, input IssueTokenInput) (*RefreshToken, error)

	// GetByToken busca por el valor firmado literal.
	// Retorna ErrNotFound si no existe.
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)

	// Revoke marca la fila como revocada. Idempotente: revocar una fila
	// ya revocada es un no-op, no un error. revoked nunca vuelve a false.
	Revoke(ctx context.Context, token string) error

	// RevokeAllByUser revoca todas las credenciales activas del usuario
	// (logout global, desactivación de cuenta). Retorna cuántas revocó.
	RevokeAllByUser(ctx context.Context, userID int64) (int64, error)

	// CountActiveByUser cuenta filas activas del usuario. La invariante
	// del sistema es que nunca supera 1.
	CountActiveByUser(ctx context.Context, userID int64) (int64, error)
}
