package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/communo/internal/domain/repository"
)

type TokenStore struct {
	pool *pgxpool.Pool
}

const tokenColumns = `id, token, user_id, issued_at, expires_at, revoked_at, rotated_from`

func scanToken(row interface{ Scan(...any) error }) (*repository.RefreshToken, error) {
	var t repository.RefreshToken
	err := row.Scan(
		&t.ID, &t.Token, &t.UserID,
		&t.IssuedAt, &t.ExpiresAt, &t.RevokedAt, &t.RotatedFrom,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

// Issue revoca las credenciales vivas del usuario e inserta la nueva en
// una sola transacción: nunca queda más de una fila activa por usuario.
//
// El advisory lock serializa emisiones concurrentes del mismo usuario: con
// READ COMMITTED, dos logins casi simultáneos sin fila activa previa no se
// verían entre sí con el UPDATE solo, y ambos INSERT quedarían vivos. El
// índice único parcial sobre (user_id) WHERE revoked_at IS NULL respalda el
// invariante a nivel de esquema.
func (s *TokenStore) Issue(ctx context.Context, in repository.IssueTokenInput) (*repository.RefreshToken, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock($1)`, in.UserID,
	); err != nil {
		return nil, mapError(err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE refresh_token
		   SET revoked_at = now()
		 WHERE user_id = $1 AND revoked_at IS NULL`,
		in.UserID,
	); err != nil {
		return nil, mapError(err)
	}

	t, err := scanToken(tx.QueryRow(ctx, `
		INSERT INTO refresh_token (id, token, user_id, issued_at, expires_at, rotated_from)
		VALUES ($1, $2, $3, now(), $4, $5)
		RETURNING `+tokenColumns,
		uuid.New(), in.Token, in.UserID, in.ExpiresAt, in.RotatedFrom,
	))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (s *TokenStore) GetByToken(ctx context.Context, token string) (*repository.RefreshToken, error) {
	return scanToken(s.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM refresh_token WHERE token = $1`, token))
}

// Revoke marca la fila como revocada. Revocar dos veces no es error: el
// estado final es el mismo.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_token
		   SET revoked_at = now()
		 WHERE token = $1 AND revoked_at IS NULL`,
		token,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByToken(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

func (s *TokenStore) RevokeAllByUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_token
		   SET revoked_at = now()
		 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *TokenStore) CountActiveByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM refresh_token
		 WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`,
		userID, time.Now().UTC(),
	).Scan(&n)
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}
